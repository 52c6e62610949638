package echo

// ExcludedVariables are dropped from every calibrated dataset. They are
// specific to one vendor's transceiver, or come from a platform config rather
// than an onboard CTD, and would otherwise make stores from different sonar
// models incompatible.
var ExcludedVariables = []string{
	"angle_offset_alongship",
	"angle_offset_athwartship",
	"angle_sensitivity_alongship",
	"angle_sensitivity_athwartship",
	"beamwidth_alongship",
	"beamwidth_athwartship",
	"pressure",
	"temperature",
	"salinity",
	"pH",
	"sa_correction",
}

// RequiredVariables must be present after sanitization.
var RequiredVariables = []string{
	"equivalent_beam_angle",
	"echo_range",
	"Sv",
	"gain_correction",
	"impedance_transceiver",
	"formula_absorption",
	"receiver_sampling_frequency",
	"impedance_transducer",
	"frequency_nominal",
	"sound_absorption",
	"sound_speed",
	"source_filenames",
	"water_level",
}

// Sanitizer drops excluded variables from calibrated datasets and, if
// Strict, checks the required ones are present.
type Sanitizer struct {
	Exclude []string
	Require []string
	Strict  bool

	Log Logger
}

// NewSanitizer returns a strict Sanitizer over the default variable sets.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		Exclude: ExcludedVariables,
		Require: RequiredVariables,
		Strict:  true,
		Log:     NopLogger{},
	}
}

// Sanitize returns a view of ds without the excluded variables. ds itself is
// not modified.
func (s *Sanitizer) Sanitize(ds *Dataset) (*Dataset, error) {
	var dropped []string
	for _, name := range s.Exclude {
		if ds.Has(name) {
			dropped = append(dropped, name)
		}
	}
	out := ds.DropVars(dropped...)
	if s.Log != nil && len(dropped) > 0 {
		s.Log.Debugf("dropped variables from Sv dataset: %v", dropped)
	}
	if !s.Strict {
		return out, nil
	}
	for _, name := range s.Require {
		if !out.Has(name) {
			return nil, &SchemaViolation{Variable: name}
		}
	}
	return out, nil
}
