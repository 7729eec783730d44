package extract

import (
	"regexp"
	"strings"

	"clsync/internal/models"

	"golang.org/x/net/html"
)

const projectPathMarker = "/project/"

// updatedRe matches the site's relative-time marker, e.g. "Updated 3 days
// ago". Text matching this pattern is never a description.
var updatedRe = regexp.MustCompile(`(?i)\bupdated\b.*\bago\b`)

// projectCards is the structural strategy: anchors whose href follows the
// project path scheme are treated as cards. Within a card the first nested
// block is the title, the second is the description unless it is actually
// the update marker, and any block matching the update pattern supplies the
// Updated field. Binds on structure, not position in the page.
func projectCards(doc *html.Node) []models.Project {
	anchors := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "a") && strings.Contains(attr(n, "href"), projectPathMarker)
	})

	projects := make([]models.Project, 0, len(anchors))
	for _, a := range anchors {
		if p, ok := parseProjectCard(a); ok {
			projects = append(projects, p)
		}
	}
	return projects
}

// projectSection bounds the search to the subtree under a "Projects" heading
// when the page-wide anchor scan comes up empty (e.g. anchors rendered with
// unusual nesting that the card parser rejects but a scoped scan can salvage).
func projectSection(doc *html.Node) []models.Project {
	heading := findFirst(doc, func(n *html.Node) bool {
		if !isElement(n, "h1") && !isElement(n, "h2") {
			return false
		}
		return strings.Contains(nodeText(n), "Projects")
	})
	if heading == nil {
		return nil
	}

	section := ancestorWith(heading, func(n *html.Node) bool {
		return findFirst(n, func(m *html.Node) bool {
			return isElement(m, "a") && strings.Contains(attr(m, "href"), projectPathMarker)
		}) != nil
	})
	if section == nil {
		return nil
	}

	anchors := findAll(section, func(n *html.Node) bool {
		return isElement(n, "a") && strings.Contains(attr(n, "href"), projectPathMarker)
	})
	projects := make([]models.Project, 0, len(anchors))
	for _, a := range anchors {
		if p, ok := parseProjectLoose(a); ok {
			projects = append(projects, p)
		}
	}
	return projects
}

// projectLinkScan is the fallback of last resort: any element carrying a
// project-path href, with the flattened element text as the name. No
// description is recoverable at this level.
func projectLinkScan(doc *html.Node) []models.Project {
	nodes := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.Contains(attr(n, "href"), projectPathMarker)
	})

	projects := make([]models.Project, 0, len(nodes))
	for _, n := range nodes {
		if p, ok := parseProjectLoose(n); ok {
			projects = append(projects, p)
		}
	}
	return projects
}

// parseProjectCard parses one structural card. Returns ok=false for any
// malformed candidate; a bad card never aborts the pass.
func parseProjectCard(a *html.Node) (models.Project, bool) {
	id, url, ok := projectRef(attr(a, "href"))
	if !ok {
		return models.Project{}, false
	}

	blocks := cardBlocks(a)
	if len(blocks) == 0 {
		return models.Project{}, false
	}

	name := nodeText(blocks[0])
	if name == "" {
		return models.Project{}, false
	}

	p := models.Project{ID: id, Name: name, URL: url}
	if len(blocks) > 1 {
		if t := nodeText(blocks[1]); t != "" && !updatedRe.MatchString(t) {
			p.Description = t
		}
	}
	for _, b := range blocks[1:] {
		if t := nodeText(b); updatedRe.MatchString(t) {
			p.Updated = t
			break
		}
	}

	if err := p.Validate(); err != nil {
		return models.Project{}, false
	}
	return p, true
}

// parseProjectLoose extracts only id, url, and a best-effort name from a
// linked element, for the non-structural strategies.
func parseProjectLoose(n *html.Node) (models.Project, bool) {
	id, url, ok := projectRef(attr(n, "href"))
	if !ok {
		return models.Project{}, false
	}
	name := nodeText(n)
	if name == "" {
		return models.Project{}, false
	}
	// A loose scan flattens the whole card text; keep just the leading title
	// line when an update marker got mixed in.
	if loc := updatedRe.FindStringIndex(name); loc != nil && loc[0] > 0 {
		name = strings.TrimSpace(name[:loc[0]])
	}
	p := models.Project{ID: id, Name: name, URL: url}
	if err := p.Validate(); err != nil {
		return models.Project{}, false
	}
	return p, true
}

// projectRef derives the stable project ID and canonical URL from an href.
func projectRef(href string) (id, url string, ok bool) {
	idx := strings.Index(href, projectPathMarker)
	if idx < 0 {
		return "", "", false
	}
	id = href[idx+len(projectPathMarker):]
	for _, sep := range []string{"?", "#", "/"} {
		if i := strings.Index(id, sep); i >= 0 {
			id = id[:i]
		}
	}
	if id == "" {
		return "", "", false
	}
	if strings.HasPrefix(href, "/") {
		url = "https://claude.ai" + href
	} else {
		url = href
	}
	return id, url, true
}

// cardBlocks returns the nested text blocks of a card anchor. Cards usually
// wrap their blocks in a single container div; unwrap it when present.
func cardBlocks(a *html.Node) []*html.Node {
	divs := childElements(a, "div")
	if len(divs) == 1 {
		if inner := childElements(divs[0], "div"); len(inner) > 0 {
			return inner
		}
	}
	return divs
}

// ancestorWith walks up from n to the nearest ancestor satisfying pred,
// stopping at body.
func ancestorWith(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for p := n.Parent; p != nil && !isElement(p, "body"); p = p.Parent {
		if pred(p) {
			return p
		}
	}
	return nil
}
