package journal

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// xmlLog mirrors the on-disk journal. Element names match journals written
// by earlier deployments so existing files keep loading.
type xmlLog struct {
	XMLName  xml.Name     `xml:"logs"`
	Messages []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	ID        string `xml:"id,attr,omitempty"`
	Timestamp string `xml:"timestamp"`
	Sender    string `xml:"sender"`
	IP        string `xml:"ip"`
	Content   string `xml:"contenuto"`
}

// XMLFile stores records in a single XML document. Every write rereads the
// whole file, appends and atomically replaces it; callers serialize writes
// (Journal does).
type XMLFile struct {
	path string
}

func NewXMLFile(path string) *XMLFile {
	return &XMLFile{path: path}
}

func (f *XMLFile) Path() string {
	return f.path
}

func (f *XMLFile) Write(_ context.Context, rec Record) error {
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Messages = append(doc.Messages, xmlMessage{
		ID:        rec.ID,
		Timestamp: rec.Timestamp.Format(TimestampLayout),
		Sender:    rec.Sender.String(),
		IP:        rec.Peer,
		Content:   rec.Content,
	})
	return f.save(doc)
}

func (f *XMLFile) Records(context.Context) ([]Record, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(doc.Messages))
	for i, m := range doc.Messages {
		sender, err := ParseSender(m.Sender)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		ts, err := time.ParseInLocation(TimestampLayout, m.Timestamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("message %d: parsing timestamp: %w", i, err)
		}
		recs = append(recs, Record{
			ID:        m.ID,
			Timestamp: ts,
			Sender:    sender,
			Peer:      m.IP,
			Content:   m.Content,
		})
	}
	return recs, nil
}

func (f *XMLFile) Close() error { return nil }

// load returns the parsed document, or an empty one when the file is
// missing or empty.
func (f *XMLFile) load() (*xmlLog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &xmlLog{}, nil
		}
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	if len(data) == 0 {
		return &xmlLog{}, nil
	}
	var doc xmlLog
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing journal: %w", err)
	}
	return &doc, nil
}

func (f *XMLFile) save(doc *xmlLog) error {
	data, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	return writeFileAtomic(f.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place. The parent directory is created if needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	committed = true
	return nil
}
