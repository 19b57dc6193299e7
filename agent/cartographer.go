package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/literaryfinder/books"
	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/logging"
)

const (
	descriptionLimit    = 200
	startHereMinDesc    = 50
	startHereCount      = 3
	defaultCategoryName = "General"
)

// ErrNoWorks is returned when the catalogue has nothing for the subject.
var ErrNoWorks = errors.New("cartographer: no works found")

// Catalog looks up an author's published works.
type Catalog interface {
	SearchByAuthor(ctx context.Context, author string) ([]books.Volume, error)
}

// Cartographer compiles a reading map from a book catalogue and yields
// *core.ReadingMap.
type Cartographer struct {
	catalog Catalog
	opts    Options
}

// NewCartographer creates the cartographer backed by catalog.
func NewCartographer(catalog Catalog, optFns ...func(o *Options)) *Cartographer {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Cartographer{catalog: catalog, opts: opts}
}

// Role implements core.Worker.
func (c *Cartographer) Role() core.Role { return core.RoleCartographer }

// Description returns the human readable specialisation of the worker.
func (c *Cartographer) Description() string { return core.RoleCartographer.Description() }

// Tools lists the research capabilities the cartographer covers.
func (c *Cartographer) Tools() []string {
	return core.RoleCartographer.Tools()
}

// Validate implements core.Validator.
func (c *Cartographer) Validate() error {
	if c.catalog == nil {
		return errors.New("cartographer: no catalog configured")
	}
	return nil
}

// Run implements core.Worker.
func (c *Cartographer) Run(ctx context.Context, task core.Task) (core.Payload, error) {
	limiter := core.NewCallLimiter(c.opts.MaxCalls)

	var volumes []books.Volume
	err := c.opts.Retry.Do(ctx, c.opts.Logger, "cartographer catalog search", func() error {
		if err := ctx.Err(); err != nil {
			return permanent(err)
		}
		if err := limiter.Increment(); err != nil {
			return permanent(err)
		}
		start := time.Now()
		vs, err := c.catalog.SearchByAuthor(ctx, task.Subject)
		c.opts.Logger.Debug("catalog search for %q returned %d volumes in %s", task.Subject, len(vs), time.Since(start))
		if err != nil {
			if ctx.Err() != nil {
				return permanent(ctx.Err())
			}
			var se *books.StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return permanent(err)
			}
			return err
		}
		volumes = vs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	if len(volumes) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoWorks, task.Subject)
	}

	return buildReadingMap(volumes), nil
}

func buildReadingMap(volumes []books.Volume) *core.ReadingMap {
	all := make([]core.ReadingEntry, 0, len(volumes))
	for _, v := range volumes {
		entry := core.ReadingEntry{
			Title:       v.Title,
			Year:        v.Year(),
			Description: truncateDescription(v.Description),
			ISBN:        v.ISBN(),
			InfoLink:    v.InfoLink,
			PreviewLink: v.PreviewLink,
		}
		if len(v.Categories) > 0 {
			entry.Category = v.Categories[0]
		}
		all = append(all, entry)
	}

	var chronological []core.ReadingEntry
	for _, e := range all {
		if e.Year > 0 {
			chronological = append(chronological, e)
		}
	}
	sort.SliceStable(chronological, func(i, j int) bool {
		return chronological[i].Year < chronological[j].Year
	})

	var start []core.ReadingEntry
	for _, e := range chronological {
		if len(e.Description) > startHereMinDesc {
			start = append(start, e)
			if len(start) == startHereCount {
				break
			}
		}
	}
	if len(start) == 0 {
		start = append(start, limitEntries(chronological, startHereCount)...)
	}
	if len(start) == 0 {
		start = append(start, limitEntries(all, startHereCount)...)
	}

	groups := map[string][]core.ReadingEntry{}
	for _, e := range all {
		cat := e.Category
		if cat == "" {
			cat = defaultCategoryName
		}
		groups[cat] = append(groups[cat], e)
	}

	return &core.ReadingMap{
		StartHere:      start,
		Chronological:  chronological,
		ThematicGroups: groups,
		CompleteWorks:  all,
	}
}

func truncateDescription(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= descriptionLimit {
		return s
	}
	return string(r[:descriptionLimit]) + "..."
}

func limitEntries(in []core.ReadingEntry, n int) []core.ReadingEntry {
	if len(in) > n {
		return in[:n]
	}
	return in
}
