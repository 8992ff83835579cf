package fishdata

import (
	"strings"
	"time"

	"sanfish/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(raw, field string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, validationf("%s is required", field)
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, validationf("invalid %s format", field)
	}
	return id, nil
}

func validateLocation(loc *models.Location) error {
	if loc == nil {
		return validationf("location is required")
	}
	if c := loc.Coordinates; c != nil {
		if c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90) {
			return validationf("invalid latitude (must be between -90 and 90)")
		}
		if c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180) {
			return validationf("invalid longitude (must be between -180 and 180)")
		}
	}
	if loc.LocationType != "" && !loc.LocationType.Valid() {
		return validationf("invalid location_type %q", loc.LocationType)
	}
	return nil
}

func validatePhysical(p *models.PhysicalCharacteristics) error {
	if p != nil && p.Sex != "" && !p.Sex.Valid() {
		return validationf("invalid sex %q", p.Sex)
	}
	return nil
}

func validateStatus(st models.FishStatus) error {
	if st != "" && !st.Valid() {
		return validationf("invalid status %q", st)
	}
	return nil
}

// validateDiseases checks the whole batch up front; positions are 1-based.
func validateDiseases(in []DiseaseInput) error {
	for i, d := range in {
		if strings.TrimSpace(d.DiseaseName) == "" {
			return validationf("disease #%d: disease_name is required", i+1)
		}
		if d.Severity != "" && !d.Severity.Valid() {
			return validationf("disease #%d: invalid severity %q", i+1, d.Severity)
		}
		if d.Status != "" && !d.Status.Valid() {
			return validationf("disease #%d: invalid status %q", i+1, d.Status)
		}
	}
	return nil
}

func validateCreate(in CreateInput) (primitive.ObjectID, error) {
	speciesID, err := parseID(in.SpeciesID, "species_id")
	if err != nil {
		return speciesID, err
	}
	if in.CatchDate.ptr() == nil {
		return speciesID, validationf("catch_date is required")
	}
	if err := validateLocation(in.Location); err != nil {
		return speciesID, err
	}
	if err := validatePhysical(in.Physical); err != nil {
		return speciesID, err
	}
	if err := validateStatus(in.Status); err != nil {
		return speciesID, err
	}
	return speciesID, validateDiseases(in.Diseases)
}

func validatePatch(p Patch) (*primitive.ObjectID, error) {
	var speciesID *primitive.ObjectID
	if p.SpeciesID != nil {
		id, err := parseID(*p.SpeciesID, "species_id")
		if err != nil {
			return nil, err
		}
		speciesID = &id
	}
	if p.CatchDate != nil && p.CatchDate.ptr() == nil {
		return nil, validationf("catch_date cannot be empty")
	}
	if p.Location != nil {
		if err := validateLocation(p.Location); err != nil {
			return nil, err
		}
	}
	if err := validatePhysical(p.Physical); err != nil {
		return nil, err
	}
	if p.Status != nil {
		if *p.Status == "" {
			return nil, validationf("status cannot be empty")
		}
		if err := validateStatus(*p.Status); err != nil {
			return nil, err
		}
	}
	if p.Diseases != nil {
		if err := validateDiseases(*p.Diseases); err != nil {
			return nil, err
		}
	}
	return speciesID, nil
}

func validateAnalysis(in AnalysisInput) error {
	if in.AnalysisType == "" || strings.TrimSpace(in.TestName) == "" || in.Value == nil || strings.TrimSpace(in.Unit) == "" {
		return validationf("analysis_type, test_name, value and unit are required")
	}
	if !in.AnalysisType.Valid() {
		return validationf("invalid analysis_type %q", in.AnalysisType)
	}
	if in.ResultStatus != "" && !in.ResultStatus.Valid() {
		return validationf("invalid result_status %q", in.ResultStatus)
	}
	return nil
}

func validateAnalysisPatch(p AnalysisPatch) error {
	if p.AnalysisType != nil && !p.AnalysisType.Valid() {
		return validationf("invalid analysis_type %q", *p.AnalysisType)
	}
	if p.ResultStatus != nil && !p.ResultStatus.Valid() {
		return validationf("invalid result_status %q", *p.ResultStatus)
	}
	if p.TestName != nil && strings.TrimSpace(*p.TestName) == "" {
		return validationf("test_name cannot be empty")
	}
	if p.Unit != nil && strings.TrimSpace(*p.Unit) == "" {
		return validationf("unit cannot be empty")
	}
	return nil
}

// normalizeLocation applies the stored defaults.
func normalizeLocation(loc models.Location, now time.Time) models.Location {
	loc.LocationName = strings.TrimSpace(loc.LocationName)
	loc.Region = strings.TrimSpace(loc.Region)
	loc.Country = strings.TrimSpace(loc.Country)
	if loc.LocationType == "" {
		loc.LocationType = models.LocationOcean
	}
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = now
	}
	return loc
}

// normalizeTags trims, drops empties and de-duplicates, keeping first-seen order.
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return in
}
