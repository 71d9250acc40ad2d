package export

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// exportDOCX converts rendered HTML to DOCX with pandoc. The title goes into
// the document properties so Word shows it instead of the temp filename.
func exportDOCX(htmlPage string, title string) (*Result, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return nil, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	args := []string{
		"--from", "html",
		"--to", "docx",
		"--metadata", "title=" + title,
		"--output", "-",
	}
	cmd := exec.Command("pandoc", args...)
	cmd.Stdin = strings.NewReader(htmlPage)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	docx, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pandoc failed: %s", msg)
		}
		return nil, fmt.Errorf("pandoc execution failed: %w", err)
	}

	return &Result{
		Data:     docx,
		Filename: sanitizeFilename(title) + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}
