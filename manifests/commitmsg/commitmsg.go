package commitmsg

import (
	"strings"

	"github.com/valyala/fasttemplate"
)

// DefaultTemplate is the title of a submission when no
// template is configured.
const DefaultTemplate = "{PackageIdentifier} version {PackageVersion}"

const (
	begin = "--- manifest files begin ---"
	end   = "--- manifest files end ---"
)

// Render substitutes {PackageIdentifier} and
// {PackageVersion} in tpl. Unknown placeholders are kept
// as-is. An empty tpl renders DefaultTemplate.
func Render(tpl string, packageID string, version string) string {
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultTemplate
	}

	return fasttemplate.ExecuteStringStd(
		tpl, "{", "}",
		map[string]any{
			"PackageIdentifier": packageID,
			"PackageVersion":    version,
		},
	)
}

// Generate produces a commit message: title, a blank line,
// then files between begin/end markers.
func Generate(title string, files []string) string {
	var sb strings.Builder

	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(begin)
	sb.WriteByte('\n')

	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}
