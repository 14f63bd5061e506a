package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/namegen"
)

const widgetHeader = `#import <Foundation/Foundation.h>

@interface MYWidget : NSObject

@property (nonatomic, copy) NSString *serialNumber;

- (void)refreshBadge;

@end
`

const widgetImpl = `#import "MYWidget.h"

@implementation MYWidget

- (void)refreshBadge {
    self.serialNumber = @"MYWidget literal stays";
}

@end
`

const profileSwift = `import UIKit

final class ProfileHeader {
    var avatarSize: Int = 0

    func layoutBadges() {
        avatarSize += 1
    }
}
`

func writeProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Sources"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Sources", "MYWidget.h"), []byte(widgetHeader), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Sources", "MYWidget.m"), []byte(widgetImpl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Sources", "ProfileHeader.swift"), []byte(profileSwift), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# demo\n"), 0o644))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 180
	}

	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(root, "icon.png"), buf.Bytes(), 0o644))

	// third-party directory must never be scanned
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Pods"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Pods", "Vendor.h"), []byte("@interface Vendor : NSObject\n@end\n"), 0o644))

	return root
}

func TestRunRewritesSourcesAndRenamesFiles(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "out")

	eng := New(Config{
		Paths:    []m.Path{m.Path(root)},
		Output:   m.Path(output),
		Strategy: namegen.StrategySeeded,
		Seed:     "build-7",
	}, nil, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.StatusSuccess, report.Status)
	assert.Equal(t, 3, report.FilesProcessed)
	assert.Greater(t, report.SymbolsMapped, 0)
	assert.Greater(t, report.TotalReplacements, 0)

	widgetName, ok := eng.mapping.Lookup(m.SymbolKey{Name: "MYWidget", Kind: m.KindClass})
	require.True(t, ok)

	header, err := os.ReadFile(filepath.Join(output, "Sources", widgetName+".h"))
	require.NoError(t, err)
	assert.NotContains(t, string(header), "@interface MYWidget")
	assert.Contains(t, string(header), "@interface "+widgetName)
	assert.Contains(t, string(header), "NSObject")
	assert.Contains(t, string(header), "NSString")

	impl, err := os.ReadFile(filepath.Join(output, "Sources", widgetName+".m"))
	require.NoError(t, err)
	assert.Contains(t, string(impl), `#import "`+widgetName+`.h"`)
	assert.Contains(t, string(impl), `@"MYWidget literal stays"`)

	// passthrough file mirrored unmodified
	readme, err := os.ReadFile(filepath.Join(output, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# demo\n", string(readme))

	// excluded vendor dir never reaches the output
	_, err = os.Stat(filepath.Join(output, "Pods"))
	assert.True(t, os.IsNotExist(err))

	// the image was mutated, not copied
	srcIcon, err := os.ReadFile(filepath.Join(root, "icon.png"))
	require.NoError(t, err)
	dstIcon, err := os.ReadFile(filepath.Join(output, "icon.png"))
	require.NoError(t, err)
	assert.NotEqual(t, srcIcon, dstIcon)

	// mapping export lands in the output root
	assert.Equal(t, m.Path(filepath.Join(output, "symveil.mapping.yaml")), report.MappingExportPath)
	_, err = os.Stat(string(report.MappingExportPath))
	require.NoError(t, err)
}

func TestRunSeededIsDeterministic(t *testing.T) {
	root := writeProject(t)

	runOnce := func(output string) []m.MappingEntry {
		eng := New(Config{
			Paths:    []m.Path{m.Path(root)},
			Output:   m.Path(output),
			Strategy: namegen.StrategySeeded,
			Seed:     "fixed",
		}, nil, nil)

		_, err := eng.Run(context.Background())
		require.NoError(t, err)

		return eng.mapping.Entries()
	}

	first := runOnce(filepath.Join(t.TempDir(), "a"))
	second := runOnce(filepath.Join(t.TempDir(), "b"))
	assert.Equal(t, first, second)
}

func TestRunIncrementalSkipsUnchangedFiles(t *testing.T) {
	root := writeProject(t)
	statePath := filepath.Join(t.TempDir(), "state.yaml")
	firstOut := filepath.Join(t.TempDir(), "first")

	first := New(Config{
		Paths:     []m.Path{m.Path(root)},
		Output:    m.Path(firstOut),
		Strategy:  namegen.StrategySeeded,
		Seed:      "inc",
		StatePath: m.Path(statePath),
	}, nil, nil)

	firstReport, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, firstReport.FilesSkipped)

	second := New(Config{
		Paths:            []m.Path{m.Path(root)},
		Output:           m.Path(filepath.Join(t.TempDir(), "second")),
		Strategy:         namegen.StrategySeeded,
		Seed:             "inc",
		StatePath:        m.Path(statePath),
		PriorMappingPath: firstReport.MappingExportPath,
	}, nil, nil)

	secondReport, err := second.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, secondReport.FilesSkipped)
	assert.Equal(t, first.mapping.Entries(), second.mapping.Entries())
}

func TestRunDryRunWritesNothingAndEmitsDiffs(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "never")

	var diffs []string

	eng := New(Config{
		Paths:    []m.Path{m.Path(root)},
		Output:   m.Path(output),
		Strategy: namegen.StrategySeeded,
		Seed:     "dry",
		DryRun:   true,
		OnDiff: func(_ m.Path, diff string) {
			diffs = append(diffs, diff)
		},
	}, nil, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.StatusSuccess, report.Status)
	assert.NotEmpty(t, diffs)
	assert.Contains(t, strings.Join(diffs, "\n"), "-@interface MYWidget")

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestRunValidatesConfiguration(t *testing.T) {
	eng := New(Config{}, nil, nil)

	report, err := eng.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, m.StatusFailed, report.Status)

	var confErr *m.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestRunSeededStrategyRequiresSeed(t *testing.T) {
	eng := New(Config{
		Paths:    []m.Path{"x"},
		Output:   "y",
		Strategy: namegen.StrategySeeded,
	}, nil, nil)

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed")
}

func TestRunHonorsKindFilter(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "out")

	eng := New(Config{
		Paths:    []m.Path{m.Path(root)},
		Output:   m.Path(output),
		Strategy: namegen.StrategySeeded,
		Seed:     "kinds",
		Kinds:    []m.SymbolKind{m.KindClass},
	}, nil, nil)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	_, classMapped := eng.mapping.Lookup(m.SymbolKey{Name: "MYWidget", Kind: m.KindClass})
	assert.True(t, classMapped)

	_, methodMapped := eng.mapping.Lookup(m.SymbolKey{Name: "refreshBadge", Kind: m.KindMethod})
	assert.False(t, methodMapped)
}

func TestRunCancellationAborts(t *testing.T) {
	root := writeProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(Config{
		Paths:    []m.Path{m.Path(root)},
		Output:   m.Path(filepath.Join(t.TempDir(), "out")),
		Strategy: namegen.StrategyRandom,
	}, nil, nil)

	report, err := eng.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, m.StatusFailed, report.Status)
}

func TestEstimateCountsByKind(t *testing.T) {
	root := writeProject(t)

	eng := New(Config{
		Paths:    []m.Path{m.Path(root)},
		Strategy: namegen.StrategyRandom,
	}, nil, nil)

	estimates, err := eng.Estimate(context.Background())
	require.NoError(t, err)
	require.Len(t, estimates, 3)

	byPath := make(map[string]FileEstimate)
	for _, est := range estimates {
		byPath[filepath.Base(string(est.Path))] = est
	}

	header := byPath["MYWidget.h"]
	assert.Equal(t, 1, header.Counts[m.KindClass])
	assert.Equal(t, 1, header.Counts[m.KindProperty])
	assert.Equal(t, 1, header.Counts[m.KindMethod])
	assert.Equal(t, 3, header.Total())

	swift := byPath["ProfileHeader.swift"]
	assert.Equal(t, 1, swift.Counts[m.KindClass])
	assert.Equal(t, 1, swift.Counts[m.KindProperty])
	assert.Equal(t, 1, swift.Counts[m.KindMethod])
}
