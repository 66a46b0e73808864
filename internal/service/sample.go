package service

// samplePlaylist lists a few public test videos for trying the app without a playlist of one's own.
const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="" tvg-name="Big Buck Bunny" tvg-logo="https://upload.wikimedia.org/wikipedia/commons/thumb/c/c5/Big_buck_bunny_poster_big.jpg/300px-Big_buck_bunny_poster_big.jpg" group-title="Movies",Big Buck Bunny
https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4
#EXTINF:-1 tvg-id="" tvg-name="Elephant Dream" tvg-logo="https://upload.wikimedia.org/wikipedia/commons/thumb/7/70/Elephants_Dream_%282006%29.jpg/300px-Elephants_Dream_%282006%29.jpg" group-title="Documentaries",Elephant Dream
https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4
#EXTINF:-1 tvg-id="" tvg-name="For Bigger Blazes" tvg-logo="https://images.unsplash.com/photo-1574267432553-4b4628081c31?w=300" group-title="Music",For Bigger Blazes
https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4
#EXTINF:-1 tvg-id="" tvg-name="For Bigger Escape" tvg-logo="https://images.unsplash.com/photo-1519681393784-d120267933ba?w=300" group-title="Adventure",For Bigger Escape
https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerEscapes.mp4
`

const samplePlaylistName = "Sample playlist"
