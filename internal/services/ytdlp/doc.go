// Package ytdlp wraps the yt-dlp CLI for the two things hearingcap needs from
// YouTube: video metadata for stream descriptors and a direct audio URL that
// ffmpeg can read.
package ytdlp
