package extractor

import "strconv"

// Options controls a single extraction
type Options struct {
	Format              string
	SocketTimeout       int
	Retries             int
	IncludeDASHManifest bool
	NoWarnings          bool
}

// BaseOptions is the option set every platform starts from
func BaseOptions(socketTimeout, retries int) Options {
	return Options{
		Format:        "best",
		SocketTimeout: socketTimeout,
		Retries:       retries,
	}
}

// overlay changes a base option set for one platform
type overlay func(*Options)

var platformOverlays = map[string]overlay{
	"youtube": func(o *Options) {
		o.Format = "best[height<=?2160]"
		o.IncludeDASHManifest = true
	},
	"vimeo": func(o *Options) {
		o.Format = "best[height<=?2160]"
	},
}

// ForPlatform merges the platform overlay over base
func ForPlatform(base Options, platform string) Options {
	opts := base
	if apply, ok := platformOverlays[platform]; ok {
		apply(&opts)
	}
	return opts
}

// Args renders the options as yt-dlp flags
func (o Options) Args() []string {
	args := []string{"--dump-single-json", "--skip-download", "--simulate", "--no-playlist", "--quiet"}
	if o.NoWarnings {
		args = append(args, "--no-warnings")
	}
	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}
	if o.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(o.SocketTimeout))
	}
	if o.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(o.Retries))
	}
	if !o.IncludeDASHManifest {
		args = append(args, "--youtube-skip-dash-manifest")
	}
	return args
}
