package version

// Version is the current version of the paircall CLI. Overridden at build
// time with:
//
//	go build -ldflags="-X 'github.com/mzahid786/paircall/internal/version.Version=v1.0.0'"
var Version = "dev"
