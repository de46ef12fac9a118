/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pswrap

// Format selects how the envelope's success field is serialized by the
// wrapper script
//   - FormatJSON: ConvertTo-Json -Compress over the success array
//   - FormatString: each success item piped through Out-String, then JSON-compressed
//   - FormatNone: the raw success array, not further serialized
type Format string

const (
	FormatJSON   Format = "json"
	FormatString Format = "string"
	FormatNone   Format = "none"
)

// IsValid reports whether f is one of the three recognized formats
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatString, FormatNone:
		return true
	}
	return false
}
