package repositories

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const MessagePrefix = "msg:"

// Entry is a human readable view of a raw badger key/value pair.
type Entry struct {
	Key    string
	Kind   string
	At     string
	Owner  string
	Detail string
}

// DescribeEntry decodes any key written by the repositories of this package.
// Undecodable values are reported, never returned as errors.
func DescribeEntry(key string, val []byte) Entry {
	entry := Entry{Key: key, Kind: "UNKNOWN", Detail: fmt.Sprintf("%d bytes", len(val))}

	switch {
	case strings.HasPrefix(key, MessagePrefix):
		entry.Kind = "MESSAGE"
		var stored diskMessage
		if err := json.Unmarshal(val, &stored); err != nil {
			entry.Detail = "Error: unmarshal failed"
			return entry
		}
		entry.At = formatNano(stored.CreatedAt)
		entry.Owner = stored.SenderID + " -> " + stored.ReceiverID
		entry.Detail = stored.Text
		if stored.Image != nil {
			entry.Detail = strings.TrimSpace(entry.Detail + " [image " + *stored.Image + "]")
		}
	case strings.HasPrefix(key, userPrefix):
		entry.Kind = "USER"
		var stored diskUser
		if err := json.Unmarshal(val, &stored); err != nil {
			entry.Detail = "Error: unmarshal failed"
			return entry
		}
		entry.At = formatNano(stored.CreatedAt)
		entry.Owner = stored.ID
		entry.Detail = fmt.Sprintf("%s <%s>", stored.FullName, stored.Email)
	case strings.HasPrefix(key, emailPrefix):
		entry.Kind = "EMAIL"
		entry.Owner = string(val)
		entry.Detail = strings.TrimPrefix(key, emailPrefix)
	}
	return entry
}

func formatNano(ns int64) string {
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
