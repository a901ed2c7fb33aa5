package metar

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Category is the flight rules classification derived from ceiling and
// visibility.
type Category string

const (
	CategoryVFR  Category = "VFR"
	CategoryMVFR Category = "MVFR"
	CategoryIFR  Category = "IFR"
	CategoryLIFR Category = "LIFR"
)

// Wind holds the decoded wind group. A nil *Wind on Report means the group
// was not reported.
type Wind struct {
	DirectionDeg int
	Variable     bool
	SpeedKt      int
	GustKt       int
}

// Visibility holds the decoded visibility group in statute miles.
// GreaterThan marks a "P" prefix (e.g. P6SM).
type Visibility struct {
	SM          float64
	GreaterThan bool
}

// SkyLayer is one sky condition group, in the order reported.
type SkyLayer struct {
	Coverage   string
	AltitudeFt int
}

// Report is a decoded METAR observation. Pointer fields are nil when the
// corresponding group was absent or malformed.
type Report struct {
	Station       string
	ObservedAt    time.Time
	Wind          *Wind
	Visibility    *Visibility
	Sky           []SkyLayer
	Weather       []string
	TempC         *int
	DewpointC     *int
	AltimeterInHg *float64
	Category      Category
	Raw           string
}

// ParseError reports a METAR missing one of its mandatory leading groups.
type ParseError struct {
	Missing string
	Raw     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metar: missing %s group in %q", e.Missing, e.Raw)
}

var (
	stationRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)
	timeRegex    = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)
	windRegex    = regexp.MustCompile(`^(VRB|\d{3})(\d{2,3})(?:G(\d{2,3}))?KT$`)
	visRegex     = regexp.MustCompile(`^(P)?(\d{1,2})(?:/(\d))?SM$`)
	skyRegex     = regexp.MustCompile(`^(SKC|CLR|FEW|SCT|BKN|OVC|VV)(\d{3})?$`)
	tempRegex    = regexp.MustCompile(`^(M?)(\d{2})/(M?)(\d{2})$`)
	altimRegex   = regexp.MustCompile(`^A(\d{4})$`)
	wxRegex      = regexp.MustCompile(`^[+-]?(VC)?(MI|PR|BC|DR|BL|SH|TS|FZ)?(DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)+$`)
)

// Parse decodes a single-line METAR. Station and time groups are mandatory;
// everything after them is optional and unrecognized tokens are skipped so
// future grammar additions never break the parse.
func Parse(raw string) (*Report, error) {
	return ParseAt(raw, time.Now().UTC())
}

// ParseAt is Parse with an explicit reference time used to resolve the
// day-of-month observation timestamp into a full date.
func ParseAt(raw string, ref time.Time) (*Report, error) {
	fields := strings.Fields(strings.TrimSpace(raw))

	// Some feeds prefix the report type.
	if len(fields) > 0 && (fields[0] == "METAR" || fields[0] == "SPECI") {
		fields = fields[1:]
	}

	if len(fields) == 0 || !stationRegex.MatchString(fields[0]) {
		return nil, &ParseError{Missing: "station", Raw: raw}
	}
	if len(fields) < 2 || !timeRegex.MatchString(fields[1]) {
		return nil, &ParseError{Missing: "time", Raw: raw}
	}

	r := &Report{
		Station:    fields[0],
		ObservedAt: parseDayTime(fields[1], ref),
		Raw:        strings.TrimSpace(raw),
	}

	body := fields[2:]
	// Remarks never carry fields we decode.
	for i, tok := range body {
		if tok == "RMK" {
			body = body[:i]
			break
		}
	}

	for _, tok := range body {
		switch {
		case windRegex.MatchString(tok):
			r.Wind = parseWind(tok)
		case visRegex.MatchString(tok):
			r.Visibility = parseVisibility(tok)
		case skyRegex.MatchString(tok):
			m := skyRegex.FindStringSubmatch(tok)
			layer := SkyLayer{Coverage: m[1]}
			if m[2] != "" {
				n, _ := strconv.Atoi(m[2])
				layer.AltitudeFt = n * 100
			}
			r.Sky = append(r.Sky, layer)
		case tempRegex.MatchString(tok):
			m := tempRegex.FindStringSubmatch(tok)
			temp := signedTemp(m[1], m[2])
			dew := signedTemp(m[3], m[4])
			r.TempC = &temp
			r.DewpointC = &dew
		case altimRegex.MatchString(tok):
			m := altimRegex.FindStringSubmatch(tok)
			n, _ := strconv.Atoi(m[1])
			inHg := float64(n) / 100
			r.AltimeterInHg = &inHg
		case wxRegex.MatchString(tok):
			r.Weather = append(r.Weather, tok)
		default:
			// Unknown token: skip, never abort.
		}
	}

	r.Category = deriveCategory(r.Visibility, r.CeilingFt())
	return r, nil
}

func parseDayTime(tok string, ref time.Time) time.Time {
	m := timeRegex.FindStringSubmatch(tok)
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])

	ref = ref.UTC()
	t := time.Date(ref.Year(), ref.Month(), day, hour, minute, 0, 0, time.UTC)
	// Observation day ahead of the reference day means last month's report.
	if day > ref.Day() {
		t = t.AddDate(0, -1, 0)
	}
	return t
}

func parseWind(tok string) *Wind {
	m := windRegex.FindStringSubmatch(tok)
	w := &Wind{}
	if m[1] == "VRB" {
		w.Variable = true
	} else {
		w.DirectionDeg, _ = strconv.Atoi(m[1])
	}
	w.SpeedKt, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		w.GustKt, _ = strconv.Atoi(m[3])
	}
	return w
}

func parseVisibility(tok string) *Visibility {
	m := visRegex.FindStringSubmatch(tok)
	v := &Visibility{GreaterThan: m[1] == "P"}
	num, _ := strconv.Atoi(m[2])
	if m[3] != "" {
		den, _ := strconv.Atoi(m[3])
		if den == 0 {
			return nil
		}
		v.SM = float64(num) / float64(den)
	} else {
		v.SM = float64(num)
	}
	return v
}

func signedTemp(sign, digits string) int {
	n, _ := strconv.Atoi(digits)
	if sign == "M" {
		n = -n
	}
	return n
}

// CeilingFt returns the lowest broken, overcast, or vertical-visibility
// layer, or -1 when no such layer was reported (unlimited ceiling).
func (r *Report) CeilingFt() int {
	ceiling := -1
	for _, layer := range r.Sky {
		switch layer.Coverage {
		case "BKN", "OVC", "VV":
			if ceiling < 0 || layer.AltitudeFt < ceiling {
				ceiling = layer.AltitudeFt
			}
		}
	}
	return ceiling
}

// deriveCategory applies the standard aviation thresholds. A missing
// visibility or ceiling counts as unlimited.
func deriveCategory(vis *Visibility, ceilingFt int) Category {
	visSM := 99.0
	if vis != nil {
		visSM = vis.SM
	}
	unlimited := ceilingFt < 0
	switch {
	case visSM >= 3 && (unlimited || ceilingFt >= 3000):
		return CategoryVFR
	case visSM >= 3 && (unlimited || ceilingFt >= 1000):
		return CategoryMVFR
	case visSM >= 1 && (unlimited || ceilingFt >= 500):
		return CategoryIFR
	default:
		return CategoryLIFR
	}
}

// Summary re-emits the report as a canonical METAR line built only from the
// decoded fields. Parsing the summary yields the same structured values.
func (r *Report) Summary() string {
	parts := []string{r.Station, r.ObservedAt.Format("021504") + "Z"}

	if w := r.Wind; w != nil {
		var sb strings.Builder
		if w.Variable {
			sb.WriteString("VRB")
		} else {
			fmt.Fprintf(&sb, "%03d", w.DirectionDeg)
		}
		fmt.Fprintf(&sb, "%02d", w.SpeedKt)
		if w.GustKt > 0 {
			fmt.Fprintf(&sb, "G%02d", w.GustKt)
		}
		sb.WriteString("KT")
		parts = append(parts, sb.String())
	}

	if v := r.Visibility; v != nil {
		parts = append(parts, formatVisibility(v))
	}

	parts = append(parts, r.Weather...)

	for _, layer := range r.Sky {
		if layer.Coverage == "SKC" || layer.Coverage == "CLR" {
			parts = append(parts, layer.Coverage)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s%03d", layer.Coverage, layer.AltitudeFt/100))
	}

	if r.TempC != nil && r.DewpointC != nil {
		parts = append(parts, formatTemp(*r.TempC)+"/"+formatTemp(*r.DewpointC))
	}

	if r.AltimeterInHg != nil {
		parts = append(parts, fmt.Sprintf("A%04d", int(*r.AltimeterInHg*100+0.5)))
	}

	return strings.Join(parts, " ")
}

func formatVisibility(v *Visibility) string {
	prefix := ""
	if v.GreaterThan {
		prefix = "P"
	}
	if v.SM == math.Trunc(v.SM) {
		return fmt.Sprintf("%s%dSM", prefix, int(v.SM))
	}
	// Fractional visibilities re-emit in the reported d/dSM form, using the
	// smallest single-digit denominator that divides evenly.
	for den := 2; den <= 9; den++ {
		num := v.SM * float64(den)
		if math.Abs(num-math.Round(num)) < 1e-9 {
			return fmt.Sprintf("%s%d/%dSM", prefix, int(math.Round(num)), den)
		}
	}
	return fmt.Sprintf("%s%dSM", prefix, int(math.Round(v.SM)))
}

func formatTemp(c int) string {
	if c < 0 {
		return fmt.Sprintf("M%02d", -c)
	}
	return fmt.Sprintf("%02d", c)
}
