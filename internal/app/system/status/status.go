// internal/app/system/status/status.go

// Package status holds the record-status vocabulary shared by the stores
// ("active"/"disabled" on organizations, groups, and users). Participation
// lifecycles (registrations, guest requests) have their own typed status
// codes in the models package and do not use these strings.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid reports whether v is a known record status.
func IsValid(v string) bool {
	return v == Active || v == Disabled
}
