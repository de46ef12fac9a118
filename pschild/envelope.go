/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import (
	"encoding/json"

	"github.com/haraldrudell/parl/perrors"

	"github.com/haraldrudell/fullpwsh/pswrap"
)

// wireResult mirrors the outer JSON object produced by the wrapper
// (spec §6): a "result" object wrapping the six stream fields and format
type wireResult struct {
	Result wireEnvelope `json:"result"`
}

type wireEnvelope struct {
	Success json.RawMessage `json:"success"`
	Error   string          `json:"error"`
	Warning string          `json:"warning"`
	Verbose string          `json:"verbose"`
	Debug   string          `json:"debug"`
	Info    string          `json:"info"`
	Format  string          `json:"format"`
}

// decode parses one extracted frame payload into an Envelope, per
// §4.3: the outer object is parsed, then error/warning/info/verbose/
// debug are always JSON arrays of strings, and success is JSON-parsed
// per the envelope's own recorded format
func decode(payload []byte) (env Envelope, err error) {
	var wr wireResult
	if err = json.Unmarshal(payload, &wr); err != nil {
		err = perrors.ErrorfPF("envelope outer JSON %w", err)
		return
	}
	var we = wr.Result

	env.Format = pswrap.Format(we.Format)
	// for FormatJSON/FormatString the wrapper assigns success a
	// pre-serialized JSON string, so the outer envelope carries it as
	// a JSON string value that must be unwrapped once more before the
	// caller's final unmarshal; for FormatNone the raw array survives
	// the outer ConvertTo-Json untouched
	if env.Format == pswrap.FormatNone {
		env.Success = []byte(we.Success)
	} else if len(we.Success) > 0 {
		var inner string
		if err = json.Unmarshal(we.Success, &inner); err != nil {
			err = perrors.ErrorfPF("envelope success field %w", err)
			return
		}
		env.Success = []byte(inner)
	}

	if env.Error, err = decodeStringArray(we.Error); err != nil {
		err = perrors.ErrorfPF("envelope error field %w", err)
		return
	}
	if env.Warning, err = decodeStringArray(we.Warning); err != nil {
		err = perrors.ErrorfPF("envelope warning field %w", err)
		return
	}
	if env.Verbose, err = decodeStringArray(we.Verbose); err != nil {
		err = perrors.ErrorfPF("envelope verbose field %w", err)
		return
	}
	if env.Debug, err = decodeStringArray(we.Debug); err != nil {
		err = perrors.ErrorfPF("envelope debug field %w", err)
		return
	}
	if env.Info, err = decodeStringArray(we.Info); err != nil {
		err = perrors.ErrorfPF("envelope info field %w", err)
		return
	}

	return
}

// decodeStringArray JSON-decodes a field that is itself a serialized
// JSON array of strings; an empty field decodes to an empty slice
func decodeStringArray(field string) (values []string, err error) {
	if field == "" {
		return
	}
	if err = json.Unmarshal([]byte(field), &values); err != nil {
		return
	}
	return
}

// DecodeSuccess JSON-parses the success field into dst according to
// the call's requested format
//   - json: success is a compressed-JSON array, unmarshal directly
//   - string: success is a compressed-JSON array of strings (each
//     already piped through Out-String), unmarshal directly
//   - none: success is the raw PowerShell array re-serialized by the
//     outer envelope conversion, unmarshal directly — the wrapper does
//     not additionally JSON-string-encode it
func DecodeSuccess(env Envelope, dst any) (err error) {
	if len(env.Success) == 0 {
		return
	}
	if err = json.Unmarshal(env.Success, dst); err != nil {
		err = perrors.ErrorfPF("success field %w", err)
	}
	return
}
