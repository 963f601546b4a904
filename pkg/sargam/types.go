package sargam

// Status reports what the service can currently do.
type Status struct {
	Raagas        int    // Number of raagas in the loaded catalog
	CatalogSource string // "builtin", "sqlite" or "custom"
	FFmpeg        bool   // ffmpeg and ffprobe found on PATH; needed for audio uploads
	YTDLP         bool   // yt-dlp found on PATH; needed for YouTube transcription
	SampleRate    int    // Rate audio is resampled to before pitch tracking
	DefaultTonic  float64
}
