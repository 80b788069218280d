package version

// Tag is set at build time via
// -ldflags "-X github.com/harel159/email-automation-system/internal/version.Tag=v1.2.3".
var Tag = "dev"

func String() string {
	if Tag == "" {
		return "dev"
	}
	return Tag
}
