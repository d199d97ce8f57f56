package summarizer

import (
	"fmt"
	"path"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	t       func(string) string
	version string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.t = t
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter. Labels are English unless
// a translator is given.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		t: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder
	t := f.t

	fmt.Fprintf(&b, "# %s\n\n", t("Preview Summary"))

	fmt.Fprintf(&b, "## %s\n\n", t("Input"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("File"), s.Input.Path)
	if s.Input.Container != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Container"), s.Input.Container)
	}
	if s.Input.Codec != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Codec"), s.Input.Codec)
	}
	if s.Input.Width > 0 && s.Input.Height > 0 {
		fmt.Fprintf(&b, "| %s | %dx%d |\n", t("Frame Size"), s.Input.Width, s.Input.Height)
	}
	fmt.Fprintf(&b, "| %s | %s |\n", t("Duration"), formatMillis(s.Input.DurationMs))
	if s.Input.Size > 0 {
		fmt.Fprintf(&b, "| %s | %s |\n", t("File Size"), formatBytes(s.Input.Size))
	}
	if s.Input.Bitrate > 0 {
		fmt.Fprintf(&b, "| %s | %d kbps |\n", t("Bitrate"), s.Input.Bitrate/1000)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Run"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	if s.Run.RunID != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Run ID"), s.Run.RunID)
	}
	fmt.Fprintf(&b, "| %s | %s |\n", t("State"), t(s.Run.State))
	fmt.Fprintf(&b, "| %s | %d |\n", t("Packets"), s.Run.Packets)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Decoded Frames"), s.Run.Decoded)
	if s.Run.DecodeErrors > 0 {
		fmt.Fprintf(&b, "| %s | %d |\n", t("Decode Errors"), s.Run.DecodeErrors)
	}
	if s.Run.Truncated {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Truncated"), t("Yes"))
	}
	fmt.Fprintf(&b, "| %s | %d ms |\n", t("Elapsed"), s.Run.ElapsedMs)
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Settings"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Setting"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Image Format"), s.Settings.Format)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Quality"), s.Settings.Quality)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Scaler"), s.Settings.Scaler)
	if s.Settings.Columns > 0 {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Spritesheet Interval"), formatInterval(s.Settings.SpritesheetIntervalMs, t))
		fmt.Fprintf(&b, "| %s | %dx%d |\n", t("Grid"), s.Settings.Columns, s.Settings.Rows)
		fmt.Fprintf(&b, "| %s | %d px |\n", t("Max Tile Size"), s.Settings.MaxTileSize)
	}
	if s.Settings.TimelensWidth > 0 {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Timelens Interval"), formatInterval(s.Settings.TimelensIntervalMs, t))
		fmt.Fprintf(&b, "| %s | %dx%d |\n", t("Timelens Size"), s.Settings.TimelensWidth, s.Settings.TimelensHeight)
	}
	b.WriteString("\n")

	if len(s.Outputs) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Outputs"))
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n|---|---|---|---|\n", t("Output"), t("Frames"), t("Files"), t("Status"))
		for _, o := range s.Outputs {
			status := t("OK")
			if o.Error != "" {
				status = t("Failed") + ": " + o.Error
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", o.Kind, o.Frames, formatFiles(o.Files), status)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "%s: %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if f.version != "" {
		fmt.Fprintf(&b, " (vidsprite %s)", f.version)
	}
	b.WriteString("\n")

	return b.String()
}

// formatFiles lists base names, collapsing long lists.
func formatFiles(files []string) string {
	if len(files) == 0 {
		return "-"
	}
	names := make([]string, 0, 3)
	for i, f := range files {
		if i == 3 {
			names = append(names, fmt.Sprintf("... (%d)", len(files)))
			break
		}
		names = append(names, path.Base(f))
	}
	return strings.Join(names, ", ")
}

func formatInterval(ms int64, t func(string) string) string {
	if ms == 0 {
		return t("Every frame")
	}
	return formatMillis(ms)
}

func formatMillis(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}
