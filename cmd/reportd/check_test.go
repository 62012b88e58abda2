package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

const storedBlob = "0123456789abcdefghijABCDEFGHIJkl.png"

type fakeBlobs map[string]bool

func (f fakeBlobs) Exists(_ context.Context, name string) (bool, error) {
	if name == "0000000000000000000000000000fail.png" {
		return false, errors.New("bucket unreachable")
	}
	return f[name], nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func healthyReport(id string) domain.Report {
	return domain.Report{
		ID:            id,
		Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IssueType:     "pothole",
		Latitude:      floatPtr(1),
		Longitude:     floatPtr(2),
		ImageFilename: strPtr(storedBlob),
		Status:        domain.StatusPending,
	}
}

func TestRunChecks_AllPass(t *testing.T) {
	blobs := fakeBlobs{storedBlob: true}
	phases := runChecks(context.Background(), []domain.Report{healthyReport("a"), healthyReport("b")}, blobs)

	var out bytes.Buffer
	assert.True(t, printPhases(&out, 2, phases))
	assert.Contains(t, out.String(), "All checks passed.")
	assert.NotContains(t, out.String(), "FAIL")
}

func TestRunChecks_ReportsProblems(t *testing.T) {
	badStatus := healthyReport("bad-status")
	badStatus.Status = "closed"

	custom := healthyReport("custom-text")
	custom.CustomIssue = "should be empty"

	halfCoords := healthyReport("half")
	halfCoords.Longitude = nil

	dangling := healthyReport("dangling")
	dangling.ImageFilename = strPtr("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz.jpg")

	unsafe := healthyReport("unsafe")
	unsafe.ImageFilename = strPtr("../etc/passwd")

	unreachable := healthyReport("unreachable")
	unreachable.ImageFilename = strPtr("0000000000000000000000000000fail.png")

	all := []domain.Report{
		healthyReport("dup"), healthyReport("dup"),
		badStatus, custom, halfCoords, dangling, unsafe, unreachable,
	}
	phases := runChecks(context.Background(), all, fakeBlobs{storedBlob: true})

	byName := make(map[string]*phase)
	for _, p := range phases {
		byName[p.name] = p
	}
	require.Len(t, byName["Identifiers"].errors, 1)
	assert.Contains(t, byName["Identifiers"].errors[0], "repeats id dup")
	require.Len(t, byName["Statuses"].errors, 1)
	assert.Contains(t, byName["Statuses"].errors[0], "bad-status")
	assert.Len(t, byName["Fields"].errors, 2)
	assert.Len(t, byName["Images"].errors, 3)

	var out bytes.Buffer
	assert.False(t, printPhases(&out, len(all), phases))
	assert.Contains(t, out.String(), "Check FAILED.")
	assert.Equal(t, 4, strings.Count(out.String(), "FAIL ("))
}
