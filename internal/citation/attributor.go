package citation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
)

// ErrNoCandidates is returned by Attribute when no chunk grounds the answer.
var ErrNoCandidates = errors.New("citation: no grounding candidate")

// Document is a stored file a reference can point at.
type Document struct {
	ID       string
	FileName string
	URL      string
}

// Catalog lists the stored files.
type Catalog interface {
	Documents(ctx context.Context) ([]Document, error)
}

// RegistryCatalog serves the registry entries as citable documents.
type RegistryCatalog struct {
	Registry domain.Registry
}

func (c RegistryCatalog) Documents(ctx context.Context) ([]Document, error) {
	entries, err := c.Registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(entries))
	for _, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = e.DocumentID
		}
		out = append(out, Document{ID: e.DocumentID, FileName: name, URL: e.URL})
	}
	return out, nil
}

// Attributor turns the grounding candidate into a reference.
type Attributor struct {
	scorer  *Scorer
	catalog Catalog
	cfg     config.CitationConfig
	pages   map[string]int
}

func NewAttributor(cfg config.CitationConfig, catalog Catalog) *Attributor {
	pages := make(map[string]int, len(cfg.SectionPages))
	for _, sp := range cfg.SectionPages {
		pages[sp.Section] = sp.Page
	}
	return &Attributor{scorer: NewScorer(cfg), catalog: catalog, cfg: cfg, pages: pages}
}

// Scorer returns the scorer used for selection.
func (a *Attributor) Scorer() *Scorer { return a.scorer }

// Attribute returns at most one reference for the answer. Without retrieved
// chunks, without a grounding candidate or without a matching stored file
// the result is empty.
func (a *Attributor) Attribute(ctx context.Context, docs []domain.RetrievedDoc, response, question string) []domain.Reference {
	refs, err := a.attribute(ctx, docs, response, question)
	if err != nil && !errors.Is(err, ErrNoCandidates) {
		logger.FromContext(ctx).With("component", "citation").Warn("attribution skipped", "error", err)
	}
	return refs
}

func (a *Attributor) attribute(ctx context.Context, docs []domain.RetrievedDoc, response, question string) ([]domain.Reference, error) {
	if len(docs) == 0 {
		return nil, ErrNoCandidates
	}
	log := logger.FromContext(ctx).With("component", "citation")
	ranked := a.scorer.Score(docs, response, question)
	best, ok := a.scorer.Select(ranked)
	if !ok {
		log.Debug("no chunk grounds the answer", "candidates", len(ranked))
		return nil, ErrNoCandidates
	}
	documents, err := a.catalog.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("citation: list documents: %w", err)
	}
	source := sourceName(best.Doc)
	file, ok := Resolve(documents, source, best.Doc.Source)
	if !ok {
		log.Debug("grounding chunk has no stored file", "source", source)
		return nil, nil
	}
	section := strings.TrimSpace(best.Doc.Chunk.Section)
	if section == "" {
		section = "N/A"
	}
	link := a.link(file, a.page(section, best.Doc.Chunk.Page))
	log.Debug("reference selected", "file", file.FileName, "final_score", best.FinalScore, "evidence", best.ResponseEvidence)
	return []domain.Reference{{
		FileName:         file.FileName,
		FileURL:          a.fileURL(file),
		Section:          section,
		SimilarityScore:  best.Doc.Distance,
		ResponseEvidence: best.ResponseEvidence,
		FinalScore:       best.FinalScore,
		CitationHTML:     citationHTML(link, file.FileName, section),
	}}, nil
}

var uploadSuffix = regexp.MustCompile(`_\d+_[a-f0-9]+`)

// Resolve maps a chunk source to a stored file: exact name or id first, then
// the name without extension, then a substring match once the upload suffix
// is removed.
func Resolve(documents []Document, source, documentID string) (Document, bool) {
	for _, d := range documents {
		if d.FileName == source || (documentID != "" && d.ID == documentID) {
			return d, true
		}
	}
	bare := StripExtension(source)
	for _, d := range documents {
		if d.FileName == bare {
			return d, true
		}
	}
	fuzzy := strings.ToLower(StripExtension(uploadSuffix.ReplaceAllString(source, "")))
	if fuzzy == "" {
		return Document{}, false
	}
	for _, d := range documents {
		name := strings.ToLower(d.FileName)
		if name == "" {
			continue
		}
		if strings.Contains(name, fuzzy) || strings.Contains(fuzzy, name) {
			return d, true
		}
	}
	return Document{}, false
}

var extensions = strings.NewReplacer(".pdf", "", ".txt", "", ".docx", "")

// StripExtension drops the document extensions from a file name.
func StripExtension(name string) string { return extensions.Replace(name) }

// page looks the section up in the page table, then falls back to the page
// of the chunk, then to the first page.
func (a *Attributor) page(section string, chunkPage int) int {
	if p, ok := a.pages[section]; ok && p > 0 {
		return p
	}
	if chunkPage > 0 {
		return chunkPage
	}
	return 1
}

func (a *Attributor) fileURL(d Document) string {
	if d.URL != "" || a.cfg.DocumentBaseURL == "" {
		return d.URL
	}
	return strings.TrimRight(a.cfg.DocumentBaseURL, "/") + "/" + url.PathEscape(d.FileName)
}

// link points at the page of the file, as a query parameter or, with the
// fragment style, as a PDF viewer fragment.
func (a *Attributor) link(d Document, page int) string {
	raw := a.fileURL(d)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if a.cfg.LinkStyle == "fragment" {
		u.Fragment = "page=" + strconv.Itoa(page)
		return u.String()
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func citationHTML(link, fileName, section string) string {
	label := "[Nguồn: " + fileName
	if section != "" && section != "N/A" {
		label += " - " + section
	}
	label += "]"
	return `<a href="` + html.EscapeString(link) + `" class="citation-link" target="_blank">` + html.EscapeString(label) + `</a>`
}

// FormatReferences appends the reference list to an answer. Answers shorter
// than minWords words are returned unchanged.
func FormatReferences(response string, refs []domain.Reference, minWords int) string {
	if len(strings.Fields(response)) < minWords || len(refs) == 0 {
		return response
	}
	var b strings.Builder
	b.WriteString(response)
	b.WriteString("\n\n**Tài liệu tham khảo:**\n")
	for i, r := range refs {
		name := StripExtension(r.FileName)
		if name == "" {
			name = "Unknown"
		}
		if r.FileURL != "" {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, name, r.FileURL)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
	}
	return b.String()
}
