// File: internal/features/extract.go
// Description: Converts a raw finding into the fixed-length numeric vector a
// classifier artifact expects. Two schemas are supported: the 6-dimension
// base schema older artifacts were trained with, and the 16-dimension
// extended schema that adds deterministically derived interaction terms.

package features

import (
	"fmt"
	"strings"

	"github.com/Jai3405/vulntriage/api/schemas"
)

// Supported schema dimensionalities.
const (
	BaseDim     = 6
	ExtendedDim = 16
)

// Neutral is the documented default for missing optional context attributes
// (exploitability, asset value, exposure): the midpoint of their [0,10]
// range. Findings lacking context degrade gracefully instead of erroring.
const Neutral = 5.0

// Base feature indices, fixed by the training pipeline.
const (
	idxSeverity = iota
	idxConfidence
	idxTypeCode
	idxExploitability
	idxAssetValue
	idxExposure
)

// typeCodes is the static enumeration of known vulnerability categories.
// Older pipelines hashed the type string; the codes are pinned here instead
// so that a vector is reproducible across processes and releases.
var typeCodes = map[string]float64{
	"sql_injection":            1,
	"command_injection":        2,
	"code_injection":           3,
	"eval_usage":               4,
	"insecure_deserialization": 5,
	"xxe":                      6,
	"hardcoded_secret":         7,
	"hardcoded_credential":     8,
	"weak_crypto":              9,
	"missing_encryption":       10,
	"path_traversal":           11,
	"xss":                      12,
	"ssrf":                     13,
	"open_redirect":            14,
	"vulnerable_dependency":    20,
	"outdated_dependency":      21,
	"insecure_base_image":      30,
	"running_as_root":          31,
	"missing_user_directive":   32,
	"missing_healthcheck":      33,
	"insecure_port_exposed":    34,
	"privileged_container":     35,
	"insecure_configuration":   40,
	"debug_enabled":            41,
	"denial_of_service":        50,
	"resource_exhaustion":      51,
	"data_leak":                52,
}

// highExploitTypes elevate the heuristic exploitability when the finding
// carries no explicit value.
var highExploitTypes = []string{
	"sql_injection",
	"command_injection",
	"code_injection",
	"eval",
	"deserialization",
	"xxe",
}

// criticalCWEs elevate the heuristic exploitability regardless of type.
var criticalCWEs = map[string]bool{
	"CWE-78":  true,
	"CWE-89":  true,
	"CWE-95":  true,
	"CWE-502": true,
	"CWE-611": true,
}

// Extract produces the feature vector for one finding in the requested
// schema. targetDim must be BaseDim or ExtendedDim; anything else is a
// schema mismatch. Extraction is deterministic: identical findings always
// yield identical vectors.
func Extract(f *schemas.Finding, targetDim int) ([]float64, error) {
	switch targetDim {
	case BaseDim:
		return extractBase(f), nil
	case ExtendedDim:
		return extend(extractBase(f)), nil
	default:
		return nil, fmt.Errorf("%w: unsupported feature dimension %d (want %d or %d)",
			schemas.ErrSchemaMismatch, targetDim, BaseDim, ExtendedDim)
	}
}

// DetectDim returns the schema dimensionality matching the classifier's
// declared input, enabling older 6-feature artifacts to run unmodified
// against the same finding stream as newer 16-feature ones.
func DetectDim(c schemas.Classifier) (int, error) {
	if c == nil {
		return 0, schemas.ErrModelNotLoaded
	}
	switch n := c.NumFeatures(); n {
	case BaseDim, ExtendedDim:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: classifier declares %d input features, no known schema matches",
			schemas.ErrSchemaMismatch, n)
	}
}

// extractBase emits the 6-dimension base vector from the lookup tables and
// context heuristics.
func extractBase(f *schemas.Finding) []float64 {
	v := make([]float64, BaseDim)
	v[idxSeverity] = float64(f.Severity.Ord())
	v[idxConfidence] = float64(f.Confidence.Ord())
	v[idxTypeCode] = TypeCode(f.Type)
	v[idxExploitability] = exploitability(f)
	v[idxAssetValue] = assetValue(f)
	v[idxExposure] = exposure(f)
	return v
}

// extend derives the 10 extended dimensions by pure arithmetic over the base
// values. No additional lookups: identical base features always produce
// identical extended features regardless of caller.
func extend(base []float64) []float64 {
	sev := base[idxSeverity]
	conf := base[idxConfidence]
	exp := base[idxExploitability]
	asset := base[idxAssetValue]
	expo := base[idxExposure]

	v := make([]float64, ExtendedDim)
	copy(v, base)

	// Interaction terms.
	v[6] = sev * exp
	v[7] = sev * conf
	v[8] = asset * expo

	// Polynomial terms.
	v[9] = exp * exp
	v[10] = sev * sev

	// Ratios, offset denominators to avoid division by zero.
	v[11] = exp / (asset + 1)
	v[12] = sev / (conf + 1)

	// Threshold indicator flags.
	v[13] = flag(sev >= 4)
	v[14] = flag(exp >= 7)
	v[15] = flag(conf == 3)

	return v
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// baseNames are the training-pipeline names of the base features, in vector
// order.
var baseNames = []string{
	"severity",
	"confidence",
	"vulnerability_type",
	"exploitability",
	"asset_value",
	"exposure",
}

// extendedNames extend baseNames with the derived dimensions, in vector order.
var extendedNames = append(baseNames[:len(baseNames):len(baseNames)],
	"severity_x_exploitability",
	"severity_x_confidence",
	"asset_value_x_exposure",
	"exploitability_squared",
	"severity_squared",
	"exploit_to_asset_ratio",
	"severity_to_confidence_ratio",
	"is_critical",
	"is_high_exploit",
	"is_high_confidence",
)

// Names returns the feature names for the given schema dimensionality, nil
// for unknown dimensions.
func Names(dim int) []string {
	switch dim {
	case BaseDim:
		return baseNames
	case ExtendedDim:
		return extendedNames
	default:
		return nil
	}
}

// TypeCode returns the numeric code for a vulnerability category, 0 for
// unknown categories.
func TypeCode(t string) float64 {
	return typeCodes[strings.ToLower(strings.TrimSpace(t))]
}

// exploitability prefers the scanner-supplied value, then falls back to the
// static CWE/type/severity heuristic.
func exploitability(f *schemas.Finding) float64 {
	if f.Exploitability != nil {
		return clamp(*f.Exploitability)
	}
	if criticalCWEs[f.CWE] {
		return 9.0
	}
	t := strings.ToLower(f.Type)
	for _, het := range highExploitTypes {
		if strings.Contains(t, het) {
			return 8.0
		}
	}
	// Dependency findings carrying an advisory identifier have a published,
	// usually weaponizable, exploit path.
	if f.VulnerabilityID != "" {
		return 7.0
	}
	switch f.Severity {
	case schemas.SeverityCritical:
		return 8.0
	case schemas.SeverityHigh:
		return 6.0
	case schemas.SeverityMedium:
		return 4.0
	case schemas.SeverityLow:
		return 2.0
	default:
		return 3.0
	}
}

// assetValue scores how valuable the affected asset is from file path
// heuristics. Findings with no path get the neutral midpoint.
func assetValue(f *schemas.Finding) float64 {
	if f.AssetValue != nil {
		return clamp(*f.AssetValue)
	}
	if f.File == "" {
		return Neutral
	}
	path := strings.ToLower(f.File)
	switch {
	case containsAny(path, "auth", "login", "password", "payment", "admin", "api"):
		return 9.0
	case containsAny(path, "dockerfile", "docker-compose", "kubernetes"):
		return 7.0
	case containsAny(path, "user", "account", "config", "settings"):
		return 6.0
	case containsAny(path, "requirements", "package"):
		return 5.0
	default:
		return 4.0
	}
}

// exposure scores how reachable the flaw is from the scanner class and the
// file path. Findings with no scanner identifier get the neutral midpoint.
func exposure(f *schemas.Finding) float64 {
	if f.Exposure != nil {
		return clamp(*f.Exposure)
	}
	scanner := strings.ToLower(f.Scanner)
	switch {
	case strings.Contains(scanner, "container"):
		return 8.0
	case strings.Contains(scanner, "infrastructure"):
		return 7.0
	case strings.Contains(scanner, "code"):
		if containsAny(strings.ToLower(f.File), "api", "route", "view", "controller") {
			return 8.0
		}
		return 5.0
	case strings.Contains(scanner, "dependency"):
		return 6.0
	default:
		return Neutral
	}
}

func containsAny(s string, subs ...string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
