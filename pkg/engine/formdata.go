package engine

// MergeDefaultsWithFormData overlays formData on computed defaults. Form data
// is authoritative: arrays keep the form data length (extra defaults are only
// appended with mergeExtraArrayDefaults), objects start from a shallow copy
// of defaults with each form data key merged in recursively, and any other
// value replaces the default outright. The result never aliases a map or
// slice of either input at the levels it rebuilds.
func MergeDefaultsWithFormData(defaults, formData any, mergeExtraArrayDefaults bool) any {
	switch data := formData.(type) {
	case []any:
		defaultList, _ := defaults.([]any)
		out := make([]any, 0, max(len(data), len(defaultList)))
		for idx, value := range data {
			if idx < len(defaultList) && defaultList[idx] != nil {
				out = append(out, MergeDefaultsWithFormData(defaultList[idx], value, mergeExtraArrayDefaults))
				continue
			}
			out = append(out, rebuild(value, mergeExtraArrayDefaults))
		}
		if mergeExtraArrayDefaults && len(out) < len(defaultList) {
			out = append(out, defaultList[len(out):]...)
		}
		return out
	case map[string]any:
		defaultMap, _ := defaults.(map[string]any)
		out := make(map[string]any, len(defaultMap)+len(data))
		for key, value := range defaultMap {
			out[key] = value
		}
		for key, value := range data {
			out[key] = MergeDefaultsWithFormData(defaultMap[key], value, mergeExtraArrayDefaults)
		}
		return out
	default:
		return formData
	}
}

// rebuild copies container form data that has no default to merge with.
func rebuild(value any, mergeExtraArrayDefaults bool) any {
	switch value.(type) {
	case map[string]any, []any:
		return MergeDefaultsWithFormData(nil, value, mergeExtraArrayDefaults)
	default:
		return value
	}
}
