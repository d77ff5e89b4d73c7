package config

// Feeder populates a configuration struct from one source.
type Feeder interface {
	Feed(target any) error
}

// KeyFeeder is a Feeder that can populate a target from a single top-level
// key of its source, so one file can hold several sections.
type KeyFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}

// FileFeeder is a Feeder backed by a file on disk.
type FileFeeder interface {
	Feeder
	File() string
}
