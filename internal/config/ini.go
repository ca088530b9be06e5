package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadINI parses the grammar described in spec.md §6: newline
// delimited [section] headers and key=value lines, with '#' or ';'
// comment lines. Unknown sections and keys are silently ignored; this
// package does no logging and does not report them to the caller.
func LoadINI(path string) (Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return Base{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	b := Base{
		TimeoutMS:      5000,
		MaxOutputBytes: 65536,
		RegisterIntervalS: 15,
		SlotRetentionS: 300,
		SSE:            map[string]string{},
	}

	var section string
	slots := map[string]*SlotSpec{}
	var slotOrder []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:eq]))
		val := strings.TrimSpace(line[eq+1:])

		switch {
		case section == "server":
			applyServerKey(&b, key, val)
		case section == "exec":
			applyExecKey(&b, key, val)
		case section == "caps":
			applyCapsKey(&b, key, val)
		case section == "announce" && key == "sse":
			name, url, ok := strings.Cut(val, "@")
			if ok {
				b.SSE[name] = url
			}
		case section == "scan" && key == "extra_subnet":
			b.ExtraCIDRs = append(b.ExtraCIDRs, val)
		case section == "ui":
			applyUIKey(&b, key, val)
		case section == "media" && key == "root":
			b.MediaRoot = val
		case section == "sync":
			applySyncKey(&b, key, val)
		case strings.HasPrefix(section, "sync.slot"):
			spec := slots[section]
			if spec == nil {
				spec = &SlotSpec{}
				slots[section] = spec
				slotOrder = append(slotOrder, section)
			}
			switch key {
			case "name":
				spec.Name = val
			case "prefer_id":
				spec.PreferID = val
			case "exec":
				spec.Exec = append(spec.Exec, RawCommand(val))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Base{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	for _, k := range slotOrder {
		b.Slots = append(b.Slots, *slots[k])
	}

	return b, nil
}

func applyServerKey(b *Base, key, val string) {
	switch key {
	case "bind":
		b.Bind = val
	case "port":
		if n, err := strconv.Atoi(val); err == nil {
			b.Port = n
		}
	case "enable_scan":
		b.EnableScan = parseBool(val)
	}
}

func applyExecKey(b *Base, key, val string) {
	switch key {
	case "interpreter":
		b.Interpreter = val
	case "timeout_ms":
		if n, err := strconv.Atoi(val); err == nil {
			b.TimeoutMS = n
		}
	case "max_output_bytes":
		if n, err := strconv.Atoi(val); err == nil {
			b.MaxOutputBytes = n
		}
	}
}

func applyCapsKey(b *Base, key, val string) {
	switch key {
	case "device":
		b.Device = val
	case "role":
		b.Role = val
	case "version":
		b.Version = val
	case "caps":
		for _, c := range strings.Split(val, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				b.Caps = append(b.Caps, c)
			}
		}
	case "include_net_info":
		b.IncludeNetInfo = parseBool(val)
	}
}

func applyUIKey(b *Base, key, val string) {
	switch key {
	case "ui_path":
		b.UIPath = val
	case "serve_ui":
		b.ServeUI = parseBool(val)
	case "ui_public":
		b.UIPublic = parseBool(val)
	}
}

func applySyncKey(b *Base, key, val string) {
	switch key {
	case "role":
		b.SyncRole = val
	case "master_url":
		b.MasterURL = val
	case "id":
		b.SelfID = val
	case "register_interval_s":
		if n, err := strconv.Atoi(val); err == nil {
			b.RegisterIntervalS = n
		}
	case "allow_bind":
		b.AllowBind = parseBool(val)
	case "slot_retention_s":
		if n, err := strconv.Atoi(val); err == nil {
			b.SlotRetentionS = n
		}
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
