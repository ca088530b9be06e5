package master

import (
	"encoding/json"

	"github.com/snokvist/autod-sub000/internal/syncproto"
)

// renderCommands re-parses each configured command template for the
// given slot, per spec.md step 6: a malformed entry is dropped (with
// a warning) rather than failing the whole response. Caller holds mu.
func (r *Registry) renderCommands(slotIdx int) []syncproto.CommandPayload {
	if slotIdx < 0 || slotIdx >= len(r.slotSpecs) {
		return nil
	}
	var out []syncproto.CommandPayload
	for _, raw := range r.slotSpecs[slotIdx].Exec {
		var cmd syncproto.CommandPayload
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			r.log.WithField("slot", slotIdx).WithError(err).Warn("dropping malformed command template")
			continue
		}
		out = append(out, cmd)
	}
	return out
}
