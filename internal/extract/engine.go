package extract

import (
	"clsync/internal/logging"
	"clsync/internal/models"

	"golang.org/x/net/html"
)

// ProjectStrategy is one heuristic for finding projects in a document.
// Strategies are pure: same document, same output.
type ProjectStrategy struct {
	Name string
	Run  func(doc *html.Node) []models.Project
}

// FileStrategy is one heuristic for finding knowledge files in a document.
type FileStrategy struct {
	Name string
	Run  func(doc *html.Node) []models.KnowledgeFile
}

// Engine runs the strategy cascades. Strategies are ordered most-structural
// first; adding support for a new site layout means registering a strategy,
// not writing a new throwaway script.
type Engine struct {
	projects []ProjectStrategy
	files    []FileStrategy
}

// NewEngine returns an engine with the default strategy ordering.
func NewEngine() *Engine {
	return &Engine{
		projects: []ProjectStrategy{
			{Name: "project-cards", Run: projectCards},
			{Name: "project-section", Run: projectSection},
			{Name: "project-links", Run: projectLinkScan},
		},
		files: []FileStrategy{
			{Name: "file-thumbnails", Run: fileThumbnails},
			{Name: "knowledge-section", Run: knowledgeSection},
			{Name: "text-pattern", Run: textPatternScan},
		},
	}
}

// Projects extracts projects from a parsed page. The first strategy with a
// non-empty result provides the records and their order; later strategies
// are still consulted, but only to fill in descriptions the winning strategy
// missed. A page with no projects yields an empty slice, not an error.
func (e *Engine) Projects(doc *html.Node) []models.Project {
	timer := logging.StartTimer(logging.CategoryExtract, "Projects")
	defer timer.Stop()

	base := []models.Project{}
	winner := len(e.projects)
	for i, s := range e.projects {
		out := runProjectStrategy(s, doc)
		if len(out) > 0 {
			logging.Extract("strategy %s matched %d projects", s.Name, len(out))
			base = dedupeProjects(out)
			winner = i
			break
		}
		logging.ExtractDebug("strategy %s found nothing", s.Name)
	}

	for _, s := range e.projects[min(winner+1, len(e.projects)):] {
		patchDescriptions(base, runProjectStrategy(s, doc))
	}
	return base
}

// KnowledgeFiles extracts knowledge files from a parsed project page.
// Same cascade contract as Projects; an empty page is a success.
func (e *Engine) KnowledgeFiles(doc *html.Node) []models.KnowledgeFile {
	timer := logging.StartTimer(logging.CategoryExtract, "KnowledgeFiles")
	defer timer.Stop()

	for _, s := range e.files {
		out := runFileStrategy(s, doc)
		if len(out) > 0 {
			logging.Extract("strategy %s matched %d files", s.Name, len(out))
			return out
		}
		logging.ExtractDebug("strategy %s found nothing", s.Name)
	}
	return []models.KnowledgeFile{}
}

// ProjectsFromHTML parses a markup snapshot and extracts projects.
func (e *Engine) ProjectsFromHTML(markup string) ([]models.Project, error) {
	doc, err := Parse(markup)
	if err != nil {
		return nil, err
	}
	return e.Projects(doc), nil
}

// KnowledgeFilesFromHTML parses a markup snapshot and extracts files.
func (e *Engine) KnowledgeFilesFromHTML(markup string) ([]models.KnowledgeFile, error) {
	doc, err := Parse(markup)
	if err != nil {
		return nil, err
	}
	return e.KnowledgeFiles(doc), nil
}

// runProjectStrategy is the per-strategy failure boundary: a panic while
// chewing on hostile markup drops that strategy's output, never the pass.
func runProjectStrategy(s ProjectStrategy, doc *html.Node) (out []models.Project) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryExtract).Warn("strategy %s panicked: %v", s.Name, r)
			out = nil
		}
	}()
	return s.Run(doc)
}

func runFileStrategy(s FileStrategy, doc *html.Node) (out []models.KnowledgeFile) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryExtract).Warn("strategy %s panicked: %v", s.Name, r)
			out = nil
		}
	}()
	return s.Run(doc)
}

// dedupeProjects keeps the first record per ID in document order. A later
// duplicate only contributes its description, and only when the kept record
// has none.
func dedupeProjects(in []models.Project) []models.Project {
	out := make([]models.Project, 0, len(in))
	index := make(map[string]int, len(in))
	for _, p := range in {
		if i, seen := index[p.ID]; seen {
			if out[i].Description == "" && p.Description != "" {
				out[i].Description = p.Description
			}
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// patchDescriptions fills empty descriptions in base from a later strategy's
// overlapping records. It never overwrites a populated field and never adds
// records.
func patchDescriptions(base []models.Project, extra []models.Project) {
	if len(base) == 0 || len(extra) == 0 {
		return
	}
	descs := make(map[string]string, len(extra))
	for _, p := range extra {
		if p.Description != "" {
			descs[p.ID] = p.Description
		}
	}
	for i := range base {
		if base[i].Description == "" {
			if d, ok := descs[base[i].ID]; ok {
				base[i].Description = d
			}
		}
	}
}
