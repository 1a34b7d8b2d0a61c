// Package csvfile stores snapshots in a line-oriented comma-separated text
// file. Fields are not quoted, so titles and descriptions must not contain
// commas or line breaks; CheckFields enforces that before data is accepted.
package csvfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ldi/planner/pkg/models"
)

const Header = "id,type,title,status,description,epic,startTime,duration"

const fieldCount = 8

// RecordError reports a row that could not be decoded.
type RecordError struct {
	Line int
	Msg  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", models.ErrMalformedRecord, e.Line, e.Msg)
}

func (e *RecordError) Unwrap() error { return models.ErrMalformedRecord }

// Encode writes the header followed by tasks, epics and subtasks in
// snapshot order.
func Encode(w io.Writer, snap *models.Snapshot) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}
	if snap != nil {
		for i := range snap.Tasks {
			writeRow(bw, &snap.Tasks[i], "")
		}
		for i := range snap.Epics {
			writeRow(bw, &snap.Epics[i], "")
		}
		for i := range snap.Subtasks {
			s := &snap.Subtasks[i]
			writeRow(bw, s, strconv.Itoa(s.EpicID))
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, item models.Item, epic string) {
	c := item.Fields()
	fields := []string{
		strconv.Itoa(c.ID),
		string(item.Ref().Kind),
		c.Title,
		string(c.Status),
		c.Description,
		epic,
		models.FormatTime(c.StartTime),
		strconv.Itoa(int(c.Duration / time.Minute)),
	}
	// bufio.Writer keeps the first error and reports it from Flush.
	w.WriteString(strings.Join(fields, ","))
	w.WriteByte('\n')
}

// Decode reads a snapshot written by Encode. The first line must be the header.
// Blank lines are skipped; any other row that does not parse fails the
// whole decode with a *RecordError.
func Decode(r io.Reader) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if line == 1 {
			if strings.TrimSpace(text) != Header {
				return nil, &RecordError{Line: line, Msg: fmt.Sprintf("expected header %q", Header)}
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := decodeRow(snap, text); err != nil {
			return nil, &RecordError{Line: line, Msg: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

func decodeRow(snap *models.Snapshot, text string) error {
	f := strings.Split(text, ",")
	if len(f) != fieldCount {
		return fmt.Errorf("expected %d fields, got %d", fieldCount, len(f))
	}

	id, err := strconv.Atoi(strings.TrimSpace(f[0]))
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", f[0])
	}
	kind, err := models.ParseKind(strings.TrimSpace(f[1]))
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(strings.TrimSpace(f[3]))
	if err != nil {
		return err
	}
	start, err := models.ParseTime(f[6])
	if err != nil {
		return err
	}
	minutes, err := strconv.ParseInt(strings.TrimSpace(f[7]), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %q", f[7])
	}
	duration, err := models.ParseMinutes(minutes)
	if err != nil {
		return err
	}
	if kind != models.KindSubtask && strings.TrimSpace(f[5]) != "" {
		return fmt.Errorf("%s row has epic id %q", kind, f[5])
	}

	c := models.Common{
		ID:          id,
		Title:       f[2],
		Description: f[4],
		Status:      status,
		StartTime:   start,
		Duration:    duration,
	}
	switch kind {
	case models.KindTask:
		snap.Tasks = append(snap.Tasks, models.Task{Common: c})
	case models.KindEpic:
		snap.Epics = append(snap.Epics, models.Epic{Common: c})
	case models.KindSubtask:
		epicID, err := strconv.Atoi(strings.TrimSpace(f[5]))
		if err != nil {
			return fmt.Errorf("invalid epic id %q", f[5])
		}
		snap.Subtasks = append(snap.Subtasks, models.Subtask{Common: c, EpicID: epicID})
	}
	return nil
}
