package user

// MergePreferences applies patch onto current and returns the result.
//
// Fields absent from patch keep their current value. Notifications is replaced
// as a whole when present; flags are never merged one by one. A never-initialized
// current is treated as DefaultPreferences.
func MergePreferences(current Preferences, patch PreferencesPatch) Preferences {
	merged := current.Materialize()

	if patch.Theme != nil {
		merged.Theme = *patch.Theme
	}
	if patch.DistanceUnit != nil {
		merged.DistanceUnit = *patch.DistanceUnit
	}
	if patch.Locale != nil {
		merged.Locale = *patch.Locale
	}
	if patch.Notifications != nil {
		merged.Notifications = *patch.Notifications
	}

	return merged
}
