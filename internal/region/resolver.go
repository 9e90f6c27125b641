package region

import "strings"

// Signal carries the raw region indicators of one record or feature.
type Signal struct {
	Code string
	Name string
}

// Stage names a resolution step.
type Stage string

const (
	StageNone   Stage = "none"
	StageDirect Stage = "direct"
	StageCode   Stage = "code"
	StageName   Stage = "name"
)

// Options holds the coverage thresholds that gate the code-signal stages.
type Options struct {
	DirectThreshold float64
	CodeThreshold   float64
}

// DefaultOptions returns the 80% / 60% thresholds.
func DefaultOptions() Options {
	return Options{DirectThreshold: 0.8, CodeThreshold: 0.6}
}

// Resolution is the batch outcome of Resolve. Regions is parallel to the input.
type Resolution struct {
	Regions  []Region
	Stage    Stage
	Coverage float64
	Scheme   SchemeVote
	ByStage  map[Stage]int
	Unmapped int
}

// Mapped returns the number of records with a canonical region.
func (r Resolution) Mapped() int {
	return len(r.Regions) - r.Unmapped
}

type codeStage struct {
	name      Stage
	threshold float64
	prepare   func(values []string) (func(string) Region, SchemeVote)
}

func codeStages(opts Options) []codeStage {
	return []codeStage{
		{
			name:      StageDirect,
			threshold: opts.DirectThreshold,
			prepare: func([]string) (func(string) Region, SchemeVote) {
				return ParseEnum, SchemeVote{}
			},
		},
		{
			name:      StageCode,
			threshold: opts.CodeThreshold,
			prepare: func(values []string) (func(string) Region, SchemeVote) {
				codes := make([]string, 0, len(values))
				for _, v := range values {
					codes = append(codes, TwoDigitCode(v))
				}
				vote := SelectScheme(codes)
				return func(v string) Region { return LookupCode(v, vote.Scheme) }, vote
			},
		},
	}
}

// Resolve maps a batch of signals to canonical regions. The code signal is
// tried by the stages in order; the first stage whose coverage of non-empty
// values reaches its threshold is accepted for the whole batch. Scheme
// selection sees every code in the batch. Records still unmapped after that
// fall back to the name tables, using the code text when no name is present
// and no code stage was accepted.
func Resolve(signals []Signal, opts Options) Resolution {
	res := Resolution{
		Regions: make([]Region, len(signals)),
		Stage:   StageNone,
		ByStage: make(map[Stage]int),
	}

	values := make([]string, 0, len(signals))
	for _, s := range signals {
		if v := strings.TrimSpace(s.Code); v != "" {
			values = append(values, v)
		}
	}

	if len(values) > 0 {
		for _, st := range codeStages(opts) {
			mapFn, vote := st.prepare(values)
			mapped := 0
			for _, v := range values {
				if mapFn(v) != None {
					mapped++
				}
			}
			coverage := float64(mapped) / float64(len(values))
			if st.name == StageCode {
				res.Scheme = vote
			}
			if coverage < st.threshold {
				continue
			}
			res.Stage = st.name
			res.Coverage = coverage
			for i, s := range signals {
				if r := mapFn(s.Code); r != None {
					res.Regions[i] = r
					res.ByStage[st.name]++
				}
			}
			break
		}
	}

	named := 0
	for i, s := range signals {
		if res.Regions[i] != None {
			continue
		}
		name := s.Name
		if strings.TrimSpace(name) == "" && res.Stage == StageNone {
			name = s.Code
		}
		if r := LookupName(name); r != None {
			res.Regions[i] = r
			res.ByStage[StageName]++
			named++
		}
	}
	if res.Stage == StageNone && named > 0 {
		res.Stage = StageName
		res.Coverage = float64(named) / float64(len(signals))
	}

	for _, r := range res.Regions {
		if r == None {
			res.Unmapped++
		}
	}
	return res
}
