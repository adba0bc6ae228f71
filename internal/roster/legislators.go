package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"stocksentinel-backend/internal/components/assert"
	"stocksentinel-backend/internal/components/chrono"
	"stocksentinel-backend/internal/components/telemetry"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_loader_fetch  = "loader.fetch"
	report_loader_decode = "loader.decode"
	report_loader_format = "loader.format"

	CurrentLegislatorsUrl    = "https://theunitedstates.io/congress-legislators/legislators-current.json"
	HistoricalLegislatorsUrl = "https://theunitedstates.io/congress-legislators/legislators-historical.json"
)

// DefaultTermsEndAfter is the cutoff for senators whose last term ended too long ago to
// appear in the electronic filing portal.
var DefaultTermsEndAfter = time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC)

type legislatorName struct {
	First        string `json:"first"`
	Last         string `json:"last"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	OfficialFull string `json:"official_full"`
}

type legislatorTerm struct {
	Type  string `json:"type"`
	Start string `json:"start"`
	End   string `json:"end"`
	State string `json:"state"`
	Party string `json:"party"`
}

// Legislator is a single entry of the congress-legislators dataset.
type Legislator struct {
	ID struct {
		Bioguide string `json:"bioguide"`
	} `json:"id"`
	Name legislatorName `json:"name"`
	Bio  struct {
		Birthday string `json:"birthday"`
	} `json:"bio"`
	Terms []legislatorTerm `json:"terms"`
}

func (n legislatorName) first() string {
	if n.FirstName != "" {
		return n.FirstName
	}
	return n.First
}

func (n legislatorName) last() string {
	if n.LastName != "" {
		return n.LastName
	}
	return n.Last
}

func (n legislatorName) full() string {
	if n.OfficialFull != "" {
		return n.OfficialFull
	}
	return fmt.Sprintf("%s %s", n.First, n.Last)
}

func partyFromName(party string) Party {
	switch party {
	case "Independent":
		return PARTY_INDEPENDENT
	case "Republican":
		return PARTY_REPUBLICAN
	case "Democrat":
		return PARTY_DEMOCRAT
	}
	if len(party) > 1 {
		return PARTY_INDEPENDENT
	}
	return Party(party)
}

const termDateLayout = "2006-01-02"

// FormatSenators keeps the legislators whose last term is a senate term that ended
// after `endAfter` and converts them into filers. `now` decides whether a filer is active.
func FormatSenators(members []Legislator, endAfter, now time.Time) ([]Filer, error) {
	var out []Filer
	var errs []string
	for _, m := range members {
		if len(m.Terms) == 0 {
			continue
		}
		term := m.Terms[len(m.Terms)-1]
		if term.Type != "sen" {
			continue
		}
		end, err := time.Parse(termDateLayout, term.End)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: term end %q", m.ID.Bioguide, term.End))
			continue
		}
		if !end.After(endAfter) {
			continue
		}

		out = append(out, Filer{
			ID:        m.ID.Bioguide,
			FirstName: m.Name.first(),
			LastName:  m.Name.last(),
			FullName:  m.Name.full(),
			Party:     partyFromName(term.Party),
			State:     term.State,
			Birthday:  m.Bio.Birthday,
			Active:    end.After(now),
		})
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("unparsable terms: %s", strings.Join(errs, ", "))
	}
	return out, nil
}

// Loader reads the congress-legislators dataset from urls or local files.
type Loader struct {
	http *resty.Client
	time chrono.API
	tel  telemetry.API
}

func NewLoader(http *resty.Client, time chrono.API, tel telemetry.API) Loader {
	assert.NotNil(http)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Loader{
		http: http,
		time: time,
		tel:  telemetry.NewScopedAPI("roster", tel),
	}
}

func (l Loader) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	res, err := l.http.R().
		SetContext(ctx).
		Get(source)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("unexpected status %s", res.Status())
	}
	return res.Body(), nil
}

// Load reads every source, concatenates the legislators and formats the senators among them.
func (l Loader) Load(ctx context.Context, sources []string, endAfter time.Time) ([]Filer, error) {
	var members []Legislator
	for _, source := range sources {
		body, err := l.read(ctx, source)
		if err != nil {
			l.tel.ReportBroken(report_loader_fetch, err, source)
			return nil, fmt.Errorf("read %s: %w", source, err)
		}

		var decoded []Legislator
		err = json.Unmarshal(body, &decoded)
		if err != nil {
			l.tel.ReportBroken(report_loader_decode, err, source)
			return nil, fmt.Errorf("decode %s: %w", source, err)
		}
		l.tel.ReportDebug("loaded legislators", source, len(decoded))
		members = append(members, decoded...)
	}

	filers, err := FormatSenators(members, endAfter, l.time.Now())
	if err != nil {
		l.tel.ReportWarning(report_loader_format, err)
	}
	return filers, nil
}
