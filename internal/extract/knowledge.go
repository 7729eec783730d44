package extract

import (
	"regexp"
	"strconv"
	"strings"

	"clsync/internal/models"

	"golang.org/x/net/html"
)

const knowledgeSectionLabel = "Project knowledge"

var (
	lineCountRe  = regexp.MustCompile(`(?i)(\d+)\s*lines?`)
	strictLineRe = regexp.MustCompile(`(?i)^(\d+)\s+lines?$`)
	capacityRe   = regexp.MustCompile(`(?i)\d+%\s*of\s*(the\s*)?project capacity`)
)

// fileThumbnails is the structural strategy: cards carrying the site's
// file-thumbnail test id. Most reliable because it binds on a semantic
// marker rather than position.
func fileThumbnails(doc *html.Node) []models.KnowledgeFile {
	thumbs := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "data-testid") == "file-thumbnail"
	})

	files := make([]models.KnowledgeFile, 0, len(thumbs))
	for _, t := range thumbs {
		if f, ok := parseThumbnail(t); ok {
			files = append(files, f)
		}
	}
	return files
}

// knowledgeSection scopes the scan to the subtree around the "Project
// knowledge" heading, then parses either thumbnail cards or the legacy
// file-item layout found inside it. Bounds the search space when the
// test-id markers are absent.
func knowledgeSection(doc *html.Node) []models.KnowledgeFile {
	heading := findFirst(doc, func(n *html.Node) bool {
		if !isElement(n, "h2") && !isElement(n, "h3") {
			return false
		}
		return strings.Contains(nodeText(n), knowledgeSectionLabel)
	})
	if heading == nil {
		return nil
	}

	section := ancestorWith(heading, hasFileMarkers)
	if section == nil {
		section = heading.Parent
	}
	if section == nil {
		return nil
	}

	if files := fileThumbnails(section); len(files) > 0 {
		return files
	}

	items := findAll(section, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "file-item")
	})
	files := make([]models.KnowledgeFile, 0, len(items))
	for _, div := range items {
		if f, ok := parseFileItem(div); ok {
			files = append(files, f)
		}
	}
	return files
}

// hasFileMarkers reports whether a container holds file-like children.
func hasFileMarkers(n *html.Node) bool {
	return findFirst(n, func(m *html.Node) bool {
		if m.Type != html.ElementNode {
			return false
		}
		if attr(m, "data-testid") == "file-thumbnail" {
			return true
		}
		if isElement(m, "div") && hasClass(m, "file-item") {
			return true
		}
		return isElement(m, "ul") && hasClass(m, "grid")
	}) != nil
}

// parseThumbnail reads one thumbnail card:
//
//	<div data-testid="file-thumbnail">
//	  <button>
//	    <div><h3>name</h3><p>N lines</p></div>
//	    <div><div><p>text|pdf</p></div></div>
//	  </button>
//	</div>
func parseThumbnail(thumb *html.Node) (models.KnowledgeFile, bool) {
	nameNode := findFirst(thumb, func(n *html.Node) bool { return isElement(n, "h3") })
	if nameNode == nil {
		return models.KnowledgeFile{}, false
	}
	name := nodeText(nameNode)
	if name == "" {
		return models.KnowledgeFile{}, false
	}

	var lines *int
	var fileType models.FileType
	for _, p := range findAll(thumb, func(n *html.Node) bool { return isElement(n, "p") }) {
		text := nodeText(p)
		switch strings.ToLower(text) {
		case "text":
			fileType = models.FileTypeText
			continue
		case "pdf":
			fileType = models.FileTypePDF
			continue
		}
		if lines == nil {
			if m := lineCountRe.FindStringSubmatch(text); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					lines = &n
				}
			}
		}
	}

	// PDF cards render a preview image instead of a type label.
	if fileType == "" && findFirst(thumb, func(n *html.Node) bool { return isElement(n, "img") }) != nil {
		fileType = models.FileTypePDF
	}

	return finishFile(name, fileType, lines)
}

// parseFileItem reads a legacy file-item entry whose metadata lives in loose
// text nodes around a button.
func parseFileItem(div *html.Node) (models.KnowledgeFile, bool) {
	if findFirst(div, func(n *html.Node) bool { return isElement(n, "button") }) == nil {
		return models.KnowledgeFile{}, false
	}

	var parts []string
	for c := div.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "button") {
			continue
		}
		var text string
		if c.Type == html.TextNode {
			text = c.Data
		} else if c.Type == html.ElementNode {
			text = nodeText(c)
		}
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				parts = append(parts, line)
			}
		}
	}

	var name string
	var lines *int
	var fileType models.FileType
	for _, part := range parts {
		if m := strictLineRe.FindStringSubmatch(part); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && lines == nil {
				lines = &n
			}
			continue
		}
		switch strings.ToUpper(part) {
		case "TEXT":
			fileType = models.FileTypeText
			continue
		case "PDF":
			fileType = models.FileTypePDF
			continue
		}
		if name == "" && !noiseLine(part) {
			name = part
		}
	}
	if name == "" {
		return models.KnowledgeFile{}, false
	}
	return finishFile(name, fileType, lines)
}

// textPatternScan is the fallback of last resort: flatten visible text and
// run a small state machine over the line sequence, recognizing
//
//	<name> / <N lines> / <TYPE>   (text files)
//	<name> / PDF                  (documents without line counts)
//
// amid UI noise. Inherently fragile; it exists only so a layout change
// degrades to partial output instead of nothing.
func textPatternScan(doc *html.Node) []models.KnowledgeFile {
	var files []models.KnowledgeFile

	var pendingName string
	var pendingLines *int

	emit := func(fileType models.FileType) {
		if f, ok := finishFile(pendingName, fileType, pendingLines); ok {
			files = append(files, f)
		}
		pendingName, pendingLines = "", nil
	}

	for _, line := range visibleTextLines(doc) {
		if noiseLine(line) {
			continue
		}

		if m := strictLineRe.FindStringSubmatch(line); m != nil {
			if pendingName == "" {
				continue // a count with no preceding name is metadata noise
			}
			if n, err := strconv.Atoi(m[1]); err == nil {
				pendingLines = &n
			}
			continue
		}

		switch strings.ToUpper(line) {
		case "TEXT":
			if pendingName != "" {
				emit(models.FileTypeText)
			}
			continue
		case "PDF":
			if pendingName != "" {
				emit(models.FileTypePDF)
			}
			continue
		}

		// A fresh name line. A dangling name+count pair is still a text
		// file: the count is the type signal.
		if pendingName != "" && pendingLines != nil {
			emit(models.FileTypeText)
		}
		pendingName, pendingLines = line, nil
	}

	if pendingName != "" && pendingLines != nil {
		emit(models.FileTypeText)
	}
	return files
}

// noiseLine recognizes known UI chrome that must never become a file name.
func noiseLine(line string) bool {
	switch line {
	case "Select file", "Optional", "Retrieving", knowledgeSectionLabel,
		"No knowledge added yet":
		return true
	}
	return capacityRe.MatchString(line)
}

// finishFile applies the typing rules shared by every strategy: a missing
// type with a line-count signal defaults to text; a missing type with no
// signal rejects the candidate rather than guessing; a PDF never carries a
// line count.
func finishFile(name string, fileType models.FileType, lines *int) (models.KnowledgeFile, bool) {
	if name == "" {
		return models.KnowledgeFile{}, false
	}
	if fileType == "" {
		if lines == nil {
			return models.KnowledgeFile{}, false
		}
		fileType = models.FileTypeText
	}
	if fileType != models.FileTypeText {
		lines = nil
	}
	f := models.KnowledgeFile{Name: name, FileType: fileType, Lines: lines}
	if err := f.Validate(); err != nil {
		return models.KnowledgeFile{}, false
	}
	return f, true
}
