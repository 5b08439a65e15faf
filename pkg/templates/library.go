package templates

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/types"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

const ext = ".png"

var (
	ErrNotFound     = errors.New("template not found")
	ErrInvalidLabel = errors.New("template label must be one of the 18 types")
	ErrInvalidID    = errors.New("invalid template id")
)

// Template is one stored exemplar of an advantage icon.
type Template struct {
	ID        string      `json:"id"`
	Label     types.Type  `json:"label"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	CreatedAt time.Time   `json:"createdAt"`
	Image     image.Image `json:"-"`
}

// Library is the on-disk set of icon templates, one PNG per exemplar named
// <label>_<unixnano>.png. Legacy files named <label>.png are also accepted.
type Library struct {
	dir string
	now func() time.Time

	mu      sync.RWMutex
	byLabel map[types.Type][]Template
}

// Open creates dir if needed and loads every template in it.
func Open(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}
	l := &Library{dir: dir, now: time.Now, byLabel: make(map[types.Type][]Template)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) Dir() string {
	return l.dir
}

// Reload rescans the directory. Unreadable or misnamed files are skipped with a warning.
func (l *Library) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}

	byLabel := make(map[types.Type][]Template)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		label, created, ok := parseID(id)
		if !ok {
			log.Warn().Str("file", name).Msg("Skipping template with unrecognised label")
			continue
		}

		path := filepath.Join(l.dir, name)
		// the file may have been replaced since it was cached
		utils.ForgetImage(path)
		img, err := utils.LoadImage(path)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable template")
			continue
		}
		if created.IsZero() {
			if info, err := entry.Info(); err == nil {
				created = info.ModTime()
			}
		}

		b := img.Bounds()
		byLabel[label] = append(byLabel[label], Template{
			ID:        id,
			Label:     label,
			Width:     b.Dx(),
			Height:    b.Dy(),
			CreatedAt: created,
			Image:     img,
		})
	}
	for label := range byLabel {
		sortTemplates(byLabel[label])
	}

	l.mu.Lock()
	l.byLabel = byLabel
	l.mu.Unlock()

	log.Debug().Str("dir", l.dir).Int("templates", countAll(byLabel)).Msg("Template library loaded")
	return nil
}

// parseID splits "<label>_<unixnano>" or a bare "<label>".
func parseID(id string) (types.Type, time.Time, bool) {
	prefix, suffix, _ := strings.Cut(id, "_")
	label, ok := types.Parse(prefix)
	if !ok || label.IsNone() {
		return types.None, time.Time{}, false
	}
	var created time.Time
	if n, err := strconv.ParseInt(suffix, 10, 64); err == nil {
		created = time.Unix(0, n)
	}
	return label, created, true
}

func sortTemplates(ts []Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

func countAll(m map[types.Type][]Template) int {
	n := 0
	for _, ts := range m {
		n += len(ts)
	}
	return n
}

// Add stores a new exemplar for label and returns it. The image is re-encoded as PNG.
func (l *Library) Add(label types.Type, data []byte) (Template, error) {
	if !label.Valid() || label.IsNone() {
		return Template{}, ErrInvalidLabel
	}
	label, _ = types.Parse(string(label))

	img, err := utils.DecodeImage(data)
	if err != nil {
		return Template{}, err
	}
	png, err := utils.EncodeImageToBuffer(img)
	if err != nil {
		return Template{}, fmt.Errorf("encode template: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	created := l.now()
	id := fmt.Sprintf("%s_%d", label, created.UnixNano())
	for l.existsLocked(id) {
		created = created.Add(time.Nanosecond)
		id = fmt.Sprintf("%s_%d", label, created.UnixNano())
	}

	path := filepath.Join(l.dir, id+ext)
	if err := utils.WriteFileAtomic(path, png, 0o644); err != nil {
		return Template{}, fmt.Errorf("save template: %w", err)
	}

	b := img.Bounds()
	t := Template{ID: id, Label: label, Width: b.Dx(), Height: b.Dy(), CreatedAt: created, Image: img}
	l.byLabel[label] = append(l.byLabel[label], t)
	sortTemplates(l.byLabel[label])

	log.Info().Str("id", id).Str("label", string(label)).Int("w", b.Dx()).Int("h", b.Dy()).Msg("Template added")
	return t, nil
}

func (l *Library) existsLocked(id string) bool {
	if _, err := os.Stat(filepath.Join(l.dir, id+ext)); err == nil {
		return true
	}
	label, _, _ := parseID(id)
	for _, t := range l.byLabel[label] {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Remove deletes a template by id.
func (l *Library) Remove(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	label, _, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.byLabel[label]
	idx := -1
	for i, t := range list {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	path := filepath.Join(l.dir, id+ext)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove template: %w", err)
	}
	utils.ForgetImage(path)

	l.byLabel[label] = append(list[:idx:idx], list[idx+1:]...)
	if len(l.byLabel[label]) == 0 {
		delete(l.byLabel, label)
	}
	log.Info().Str("id", id).Msg("Template removed")
	return nil
}

// List returns label -> exemplars in creation order.
func (l *Library) List() map[types.Type][]Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[types.Type][]Template, len(l.byLabel))
	for label, ts := range l.byLabel {
		cp := make([]Template, len(ts))
		copy(cp, ts)
		out[label] = cp
	}
	return out
}

// All returns every template, labels in canonical type order.
func (l *Library) All() []Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Template
	for _, label := range types.All() {
		out = append(out, l.byLabel[label]...)
	}
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return countAll(l.byLabel)
}
