// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// NCBI E-utilities endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedESearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedEFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// PubMed queries the NCBI E-utilities API.
type PubMed struct {
	Client *http.Client

	// now is the clock used for the lookback window; tests pin it.
	now func() time.Time
}

// NewPubMed returns a PubMed searcher using the configured HTTP timeout.
func NewPubMed(cfg types.SearchConfig) *PubMed {
	return &PubMed{
		Client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Name returns the source identifier.
func (p *PubMed) Name() string { return "pubmed" }

// Search runs ESearch for matching PMIDs, then EFetch for their records.
func (p *PubMed) Search(ctx context.Context, cfg types.SearchConfig) ([]types.Paper, error) {
	query := buildPubMedQuery(cfg.Keywords, cfg.Journals, cfg.DaysLookback, p.now())
	if query == "" {
		return nil, fmt.Errorf("empty PubMed query: no keywords or journals configured")
	}

	max := cfg.MaxPapers
	if max <= 0 {
		max = 10
	}
	// Fetch extra so duplicates removed later still leave enough.
	pmids, err := p.esearch(ctx, cfg, query, max*2)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	if len(pmids) > max {
		pmids = pmids[:max]
	}
	return p.efetch(ctx, cfg, pmids)
}

// buildPubMedQuery combines keywords (OR), journals (OR), and a publication
// date window (AND) into one E-utilities term.
func buildPubMedQuery(keywords, journals []string, daysLookback int, now time.Time) string {
	var parts []string

	if len(keywords) > 0 {
		terms := make([]string, len(keywords))
		for i, kw := range keywords {
			terms[i] = fmt.Sprintf("(%q[Title/Abstract])", kw)
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}
	if len(journals) > 0 {
		terms := make([]string, len(journals))
		for i, j := range journals {
			terms[i] = fmt.Sprintf("(%q[Journal])", j)
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}
	if len(parts) == 0 {
		return ""
	}

	if daysLookback <= 0 {
		daysLookback = 7
	}
	start := now.AddDate(0, 0, -daysLookback)
	parts = append(parts, fmt.Sprintf("(%s:%s[Date - Publication])",
		start.Format("2006/01/02"), now.Format("2006/01/02")))

	return strings.Join(parts, " AND ")
}

func (p *PubMed) esearch(ctx context.Context, cfg types.SearchConfig, query string, max int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(max))
	params.Set("retmode", "xml")
	params.Set("sort", "date")
	if cfg.PubMedEmail != "" {
		params.Set("email", cfg.PubMedEmail)
	}

	resp, err := httputil.Get(ctx, p.Client, pubmedESearchBase+"?"+params.Encode(), cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	defer resp.Body.Close()

	var result eSearchResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	return result.IDList.IDs, nil
}

func (p *PubMed) efetch(ctx context.Context, cfg types.SearchConfig, pmids []string) ([]types.Paper, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	if cfg.PubMedEmail != "" {
		params.Set("email", cfg.PubMedEmail)
	}

	resp, err := httputil.Get(ctx, p.Client, pubmedEFetchBase+"?"+params.Encode(), cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("PubMed efetch: %w", err)
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	var papers []types.Paper
	for _, article := range set.Articles {
		if paper, ok := parsePubMedArticle(article, cfg.Keywords); ok {
			papers = append(papers, paper)
		}
	}
	return papers, nil
}

// E-utilities XML structures.
type eSearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
}

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []pubmedAuthor `xml:"AuthorList>Author"`
			Journal struct {
				Title   string     `xml:"Title"`
				PubDate pubmedDate `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			ELocationIDs []eLocationID `xml:"ELocationID"`
			PubTypes     []string      `xml:"PublicationTypeList>PublicationType"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type eLocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Value   string `xml:",chardata"`
}

type articleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

func parsePubMedArticle(a pubmedArticle, keywords []string) (types.Paper, bool) {
	art := a.MedlineCitation.Article

	paper := types.Paper{
		Title:   strings.TrimSpace(art.Title),
		Journal: strings.TrimSpace(art.Journal.Title),
		PMID:    strings.TrimSpace(a.MedlineCitation.PMID),
		Source:  types.SourcePubMed,
	}
	if paper.Title == "" {
		return types.Paper{}, false
	}

	var abstractParts []string
	for _, t := range art.Abstract.Texts {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if t.Label != "" {
			abstractParts = append(abstractParts, t.Label+": "+text)
		} else {
			abstractParts = append(abstractParts, text)
		}
	}
	paper.Abstract = strings.Join(abstractParts, " ")

	for _, au := range art.Authors {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name != "" {
			paper.Authors = append(paper.Authors, name)
		}
	}

	paper.PublishedDate = parsePubMedDate(art.Journal.PubDate)

	for _, eloc := range art.ELocationIDs {
		if eloc.EIdType == "doi" {
			paper.DOI = strings.TrimSpace(eloc.Value)
			break
		}
	}
	for _, id := range a.PubmedData.ArticleIDs {
		switch id.IDType {
		case "doi":
			if paper.DOI == "" {
				paper.DOI = strings.TrimSpace(id.Value)
			}
		case "pmc":
			paper.PMCID = strings.TrimSpace(id.Value)
		}
	}

	// A PMC deposit means a free full-text copy exists.
	if paper.PMCID != "" {
		paper.IsOpenAccess = true
		paper.PDFURL = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/pdf/", paper.PMCID)
	}
	if paper.PMID != "" {
		paper.URL = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", paper.PMID)
	}

	paper.ArticleType = classifyArticleType(art.PubTypes, paper.Abstract)
	paper.MatchedKeywords = matchKeywords(paper.Title+" "+paper.Abstract, keywords)

	return paper, true
}

func parsePubMedDate(d pubmedDate) time.Time {
	year, err := strconv.Atoi(d.Year)
	if err != nil {
		return time.Time{}
	}
	month := parseMonth(d.Month)
	day := 1
	if n, err := strconv.Atoi(d.Day); err == nil {
		day = n
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func parseMonth(s string) time.Month {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n)
	}
	if len(s) >= 3 {
		if m, ok := monthNames[strings.ToLower(s[:3])]; ok {
			return m
		}
	}
	return time.January
}

// nonResearchTypes are PublicationType values that mark a record as
// something other than a primary research article.
var nonResearchTypes = []string{
	"Review", "Editorial", "Comment", "Letter", "News",
	"Published Erratum", "Retracted Publication", "Biography",
	"Historical Article", "Interview", "Lecture", "Guideline",
}

var perspectiveIndicators = []string{
	"this perspective", "in this perspective",
	"this review", "in this review",
	"this commentary", "in this commentary",
	"this opinion", "this viewpoint",
}

// classifyArticleType is a best-effort label from PublicationTypeList,
// falling back to tell-tale phrases in the abstract.
func classifyArticleType(pubTypes []string, abstract string) string {
	for _, pt := range pubTypes {
		for _, nrt := range nonResearchTypes {
			if strings.Contains(strings.ToLower(pt), strings.ToLower(nrt)) {
				return pt
			}
		}
	}
	lower := strings.ToLower(abstract)
	for _, indicator := range perspectiveIndicators {
		if strings.Contains(lower, indicator) {
			return "Perspective"
		}
	}
	return "Research Article"
}
