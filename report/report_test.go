package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/internal/testutil"
)

func fullSnapshotBuilder() *testutil.SnapshotBuilder {
	return testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, testutil.SampleAuthorContext(), 2*time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), 3*time.Second).
		Succeed(core.RoleConnector, testutil.SampleLegacyAnalysis(), time.Second)
}

func TestSynthesize_AllSucceeded(t *testing.T) {
	snap, _ := fullSnapshotBuilder().Build()
	r := Synthesize("Toni Morrison", snap)

	require.Len(t, r.Sections, 3)
	assert.Equal(t, 3, r.Available())
	for i, role := range core.Roles {
		assert.Equal(t, role, r.Sections[i].Role)
		assert.True(t, r.Sections[i].Available)
	}

	md := r.Markdown()
	assert.True(t, strings.HasPrefix(md, "# The Literary Finder: Toni Morrison\n"))
	assert.True(t, strings.HasSuffix(md, Footer+"\n"))
	assert.Contains(t, md, "**Years:** 1931 - 2019")
	assert.Contains(t, md, "**Nationality:** American")
	assert.Contains(t, md, "### 🌟 Start Here")
	assert.Contains(t, md, "- **Beloved** (1987) - [📖 Link](https://books.example/beloved)")
	assert.Contains(t, md, "- **Zora Neale Hurston** - Black womanhood")
	assert.Contains(t, md, "### 📜 Critical Assessment")
	assert.NotContains(t, md, "Data unavailable")
}

func TestSynthesize_SectionOrderIndependentOfCompletionOrder(t *testing.T) {
	a, _ := fullSnapshotBuilder().Build()
	b, _ := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleConnector, testutil.SampleLegacyAnalysis(), time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), 5*time.Second).
		Succeed(core.RoleHistorian, testutil.SampleAuthorContext(), 9*time.Second).
		Build()

	ra, rb := Synthesize("Toni Morrison", a).Markdown(), Synthesize("Toni Morrison", b).Markdown()
	assert.Equal(t, ra, rb)

	hist := strings.Index(ra, Title(core.RoleHistorian))
	cart := strings.Index(ra, Title(core.RoleCartographer))
	conn := strings.Index(ra, Title(core.RoleConnector))
	assert.True(t, hist < cart && cart < conn)
}

func TestSynthesize_Idempotent(t *testing.T) {
	snap, _ := fullSnapshotBuilder().Build()
	first := Synthesize("Toni Morrison", snap).Markdown()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Synthesize("Toni Morrison", snap).Markdown())
	}
}

func TestSynthesize_FailedSlotPlaceholder(t *testing.T) {
	snap, _ := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, testutil.SampleAuthorContext(), time.Second).
		Fail(core.RoleCartographer, "catalog search: quota exceeded", time.Second).
		Succeed(core.RoleConnector, testutil.SampleLegacyAnalysis(), time.Second).
		Build()

	r := Synthesize("Toni Morrison", snap)
	assert.Equal(t, 2, r.Available())

	s, ok := r.Section(core.RoleCartographer)
	require.True(t, ok)
	assert.False(t, s.Available)
	assert.Equal(t, "_Data unavailable: catalog search: quota exceeded_\n", s.Body)

	md := r.Markdown()
	assert.Contains(t, md, "## "+Title(core.RoleCartographer)+"\n\n_Data unavailable")
}

func TestSynthesize_DoesNotMutateSnapshot(t *testing.T) {
	snap, _ := fullSnapshotBuilder().Build()
	before := snap.Slot(core.RoleCartographer).Payload.(*core.ReadingMap).Chronological[0].Title

	_ = Synthesize("Toni Morrison", snap)
	assert.Equal(t, before, snap.Slot(core.RoleCartographer).Payload.(*core.ReadingMap).Chronological[0].Title)
}

func TestRenderReadingMap_Limits(t *testing.T) {
	rm := &core.ReadingMap{ThematicGroups: map[string][]core.ReadingEntry{}}
	for i := 0; i < 20; i++ {
		e := core.ReadingEntry{Title: fmt.Sprintf("Work %02d", i), Year: 1950 + i}
		rm.Chronological = append(rm.Chronological, e)
		rm.ThematicGroups["Poetry"] = append(rm.ThematicGroups["Poetry"], e)
	}
	rm.ThematicGroups["Drama"] = []core.ReadingEntry{{Title: "Play"}}

	out := renderReadingMap(rm)
	assert.Contains(t, out, "- **Work 14** (1964)")
	assert.NotContains(t, out, "- **Work 15**")
	assert.Contains(t, out, "- ... and 5 more works\n")
	assert.Contains(t, out, "- Work 04 (1954)\n")
	assert.NotContains(t, out, "- Work 05 (1955)\n")
	assert.Less(t, strings.Index(out, "**Drama:**"), strings.Index(out, "**Poetry:**"))
}

func TestLifespan(t *testing.T) {
	assert.Equal(t, "1931 - 2019", lifespan(1931, 2019))
	assert.Equal(t, "1949", lifespan(1949, 0))
	assert.Equal(t, "? - 1616", lifespan(0, 1616))
	assert.Equal(t, "", lifespan(0, 0))
}
