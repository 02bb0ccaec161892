package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates TXT records for a server announcement.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyPath] = info.Path
	if len(info.Capabilities) > 0 {
		txt[TXTKeyCaps] = strings.Join(info.Capabilities, ",")
	}
	if info.ServerName != "" {
		txt[TXTKeyName] = info.ServerName
	}

	return txt
}

// DecodeServerTXT parses TXT records from a server announcement. Only the
// path record is required.
func DecodeServerTXT(txt TXTRecordMap) (*ServerInfo, error) {
	path, ok := txt[TXTKeyPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyPath)
	}

	info := &ServerInfo{
		Path:       path,
		ServerName: txt[TXTKeyName],
	}
	if caps, ok := txt[TXTKeyCaps]; ok && caps != "" {
		info.Capabilities = strings.Split(caps, ",")
	}
	return info, nil
}

// TXTRecordsToStrings flattens a TXTRecordMap into "key=value" entries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for key, value := range txt {
		out = append(out, key+"="+value)
	}
	return out
}

// StringsToTXTRecords parses "key=value" entries into a TXTRecordMap. An
// entry without "=" is kept as a bare flag with an empty value; only the
// first "=" separates, values may contain the character.
func StringsToTXTRecords(entries []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		key, value, _ := strings.Cut(entry, "=")
		if key != "" {
			txt[key] = value
		}
	}
	return txt
}
