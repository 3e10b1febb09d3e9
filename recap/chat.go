// Package recap analyzes exported chat logs with a text-generation backend and turns the replies into
// per-conversation and aggregate relationship analyses.
package recap

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ChatMessage is one message from a chat export.
type ChatMessage struct {
	SenderName            string `json:"sender_name"`
	TimestampMS           int64  `json:"timestamp_ms"`
	Content               string `json:"content"`
	IsGeoblockedForViewer bool   `json:"is_geoblocked_for_viewer"`
}

// ChatFile is one uploaded export file and its messages.
type ChatFile struct {
	Name string        `json:"name"`
	Data []ChatMessage `json:"data"`
}

// LoadChatFile reads a chat export from disk. The file name (without directories) becomes the ChatFile name.
func LoadChatFile(ctx context.Context, path string) (ChatFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return ChatFile{}, fmt.Errorf("LoadChatFile: open: %w", err)
	}
	defer f.Close()

	cf, err := DecodeChatFile(ctx, filepath.Base(path), bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return ChatFile{}, fmt.Errorf("LoadChatFile: %s: %w", path, err)
	}
	return cf, nil
}

// DecodeChatFile decodes an export that is either a top-level array of messages or an object with a
// "messages" array. An object without that field yields no messages.
func DecodeChatFile(ctx context.Context, name string, r io.Reader) (ChatFile, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return ChatFile{}, fmt.Errorf("read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return ChatFile{}, fmt.Errorf("expected JSON array/object, got %T", tok)
	}

	cf := ChatFile{Name: name, Data: []ChatMessage{}}
	switch delim {
	case '[':
		if err := decodeMessagesFromOpen(ctx, dec, &cf); err != nil {
			return ChatFile{}, err
		}
		return cf, nil
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return ChatFile{}, fmt.Errorf("read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return ChatFile{}, fmt.Errorf("expected string key, got %T", keyTok)
			}
			valTok, err := dec.Token()
			if err != nil {
				return ChatFile{}, fmt.Errorf("read value for key %q: %w", key, err)
			}
			if d, ok := valTok.(json.Delim); ok && d == '[' && key == "messages" {
				if err := decodeMessagesFromOpen(ctx, dec, &cf); err != nil {
					return ChatFile{}, err
				}
				continue
			}
			if err := skipValue(dec, valTok); err != nil {
				return ChatFile{}, fmt.Errorf("skip key %q value: %w", key, err)
			}
		}
		if _, err := dec.Token(); err != nil {
			return ChatFile{}, fmt.Errorf("read closing object token: %w", err)
		}
		return cf, nil
	default:
		return ChatFile{}, fmt.Errorf("unsupported top-level delimiter %q", delim)
	}
}

// decodeMessagesFromOpen decodes array elements after the opening '[' and consumes the closing ']'.
func decodeMessagesFromOpen(ctx context.Context, dec *json.Decoder, cf *ChatFile) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		var m ChatMessage
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("decode message %d: %w", len(cf.Data), err)
		}
		cf.Data = append(cf.Data, m)
	}
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read closing array token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != ']' {
		return fmt.Errorf("expected closing ']', got %v", tok)
	}
	return nil
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		return nil
	}
	if d != '{' && d != '[' {
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

var fileNumber = regexp.MustCompile(`\d+`)

// FileOrdinal returns the first integer in a file name, or 0 when there is none.
func FileOrdinal(name string) int {
	m := fileNumber.FindString(name)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// SortChatFiles orders files by the number in their name so message_2.json precedes message_10.json.
// Files with equal numbers keep their relative order.
func SortChatFiles(files []ChatFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return FileOrdinal(files[i].Name) < FileOrdinal(files[j].Name)
	})
}
