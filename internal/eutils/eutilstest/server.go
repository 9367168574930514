// Package eutilstest provides an in-memory stand-in for the E-utilities
// and PMC ID converter endpoints, for tests across packages.
package eutilstest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Article is the served content of one PMC paper.
type Article struct {
	PMID    string
	Title   string
	Journal string
	Year    string
	Month   string
	Body    string

	// Cites lists cited PMC ids as bare digits, in link order.
	Cites []string
}

// Server is a fake NCBI backend. Configure the exported maps before use;
// handlers read them under the server lock.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Hits are the PMIDs returned by esearch. Count defaults to len(Hits).
	Hits  []string
	Count int

	// PMCIDs maps PMID to "PMC<digits>"; PMIDs absent here have no PMC copy.
	PMCIDs map[string]string

	// Articles is keyed by PMC digits.
	Articles map[string]Article

	// FailFetch makes efetch for these PMC digits return HTTP 500.
	FailFetch map[string]bool

	// RawFetch overrides the efetch body for these PMC digits.
	RawFetch map[string]string

	requests map[string]int
	batches  [][]string
}

// NewServer starts a fake backend. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		PMCIDs:    map[string]string{},
		Articles:  map[string]Article{},
		FailFetch: map[string]bool{},
		RawFetch:  map[string]string{},
		requests:  map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// EutilsURL is the base to pass as the E-utilities endpoint.
func (s *Server) EutilsURL() string { return s.URL + "/entrez/eutils" }

// IDConvURL is the base to pass as the ID converter endpoint.
func (s *Server) IDConvURL() string { return s.URL + "/idconv/" }

// Requests returns the number of requests served for endpoint
// ("esearch", "idconv", "efetch", "elink"), or the total for "".
func (s *Server) Requests(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if endpoint != "" {
		return s.requests[endpoint]
	}
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// TranslateBatches returns the id lists received by the ID converter.
func (s *Server) TranslateBatches() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.batches...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/xml")
	switch {
	case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
		s.requests["esearch"]++
		s.writeSearch(w)
	case strings.HasPrefix(r.URL.Path, "/idconv"):
		s.requests["idconv"]++
		s.writeIDConv(w, strings.Split(q.Get("ids"), ","))
	case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
		s.requests["efetch"]++
		s.writeFetch(w, q.Get("id"))
	case strings.HasSuffix(r.URL.Path, "/elink.fcgi"):
		s.requests["elink"]++
		s.writeLinks(w, q.Get("id"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) writeSearch(w http.ResponseWriter) {
	count := s.Count
	if count == 0 {
		count = len(s.Hits)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<eSearchResult><Count>%d</Count><RetMax>%d</RetMax><RetStart>0</RetStart>", count, len(s.Hits))
	fmt.Fprint(&b, "<QueryKey>1</QueryKey><WebEnv>MCID_test</WebEnv><IdList>")
	for _, id := range s.Hits {
		fmt.Fprintf(&b, "<Id>%s</Id>", id)
	}
	fmt.Fprint(&b, "</IdList></eSearchResult>")
	fmt.Fprint(w, b.String())
}

func (s *Server) writeIDConv(w http.ResponseWriter, ids []string) {
	s.batches = append(s.batches, ids)
	var b strings.Builder
	fmt.Fprint(&b, `<pmcids status="ok">`)
	for _, id := range ids {
		if pmcid, ok := s.PMCIDs[id]; ok {
			fmt.Fprintf(&b, `<record requested-id="%s" pmcid="%s" pmid="%s"/>`, id, pmcid, id)
		} else {
			fmt.Fprintf(&b, `<record requested-id="%s" pmid="%s" status="error" errmsg="invalid article id"/>`, id, id)
		}
	}
	fmt.Fprint(&b, `</pmcids>`)
	fmt.Fprint(w, b.String())
}

func (s *Server) writeFetch(w http.ResponseWriter, id string) {
	if s.FailFetch[id] {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "<error>backend unavailable</error>")
		return
	}
	if raw, ok := s.RawFetch[id]; ok {
		fmt.Fprint(w, raw)
		return
	}
	a := s.Articles[id]
	fmt.Fprint(w, ArticleXML(id, a))
}

func (s *Server) writeLinks(w http.ResponseWriter, id string) {
	a := s.Articles[id]
	var b strings.Builder
	fmt.Fprintf(&b, "<eLinkResult><LinkSet><DbFrom>pmc</DbFrom><IdList><Id>%s</Id></IdList>", id)
	if len(a.Cites) > 0 {
		fmt.Fprint(&b, "<LinkSetDb><DbTo>pmc</DbTo><LinkName>pmc_pmc_cites</LinkName>")
		for _, c := range a.Cites {
			fmt.Fprintf(&b, "<Link><Id>%s</Id></Link>", c)
		}
		fmt.Fprint(&b, "</LinkSetDb>")
	}
	fmt.Fprint(&b, "</LinkSet></eLinkResult>")
	fmt.Fprint(w, b.String())
}

// ArticleXML renders a minimal JATS document for a.
func ArticleXML(id string, a Article) string {
	var b strings.Builder
	fmt.Fprint(&b, `<pmc-articleset><article><front><journal-meta>`)
	if a.Journal != "" {
		fmt.Fprintf(&b, `<journal-title-group><journal-title>%s</journal-title></journal-title-group>`, html.EscapeString(a.Journal))
	}
	fmt.Fprint(&b, `</journal-meta><article-meta>`)
	if a.PMID != "" {
		fmt.Fprintf(&b, `<article-id pub-id-type="pmid">%s</article-id>`, a.PMID)
	}
	fmt.Fprintf(&b, `<article-id pub-id-type="pmc">%s</article-id>`, id)
	if a.Title != "" {
		fmt.Fprintf(&b, `<title-group><article-title>%s</article-title></title-group>`, html.EscapeString(a.Title))
	}
	if a.Year != "" || a.Month != "" {
		fmt.Fprint(&b, `<pub-date pub-type="epub">`)
		if a.Month != "" {
			fmt.Fprintf(&b, `<month>%s</month>`, a.Month)
		}
		if a.Year != "" {
			fmt.Fprintf(&b, `<year>%s</year>`, a.Year)
		}
		fmt.Fprint(&b, `</pub-date>`)
	}
	fmt.Fprintf(&b, `</article-meta></front><body><p>%s</p></body></article></pmc-articleset>`, html.EscapeString(a.Body))
	return b.String()
}
