package hierarchy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e164networks/e164bill/internal/model"
)

func ptr(v int64) *int64 { return &v }

func testClients() []model.Client {
	return []model.Client{
		{ID: 1, Company: "E164 Networks", Level: 0},
		{ID: 10, ParentID: ptr(1), Company: "Acme Telecom", Level: model.LevelReseller},
		{ID: 50, ParentID: ptr(10), Company: "Beta Pty", Level: model.LevelClient},
		{ID: 51, ParentID: ptr(10), Company: "Gamma Ltd", Level: model.LevelClient},
		{ID: 100, ParentID: ptr(50), Company: "alice", Level: model.LevelUser},
		{ID: 101, ParentID: ptr(50), Company: "bob", Level: model.LevelUser},
	}
}

func TestBuild(t *testing.T) {
	roots := Build(testClients(), map[int64]int{10: 200, 50: 120, 51: 80})

	require.Len(t, roots, 1)
	owner := roots[0]
	assert.Equal(t, int64(1), owner.Client.ID)
	require.Len(t, owner.Children, 1)

	acme := owner.Children[0]
	assert.Equal(t, "Acme Telecom", acme.Client.Company)
	assert.Equal(t, 2, acme.ClientCount)
	assert.Equal(t, 200, acme.DidCount)
	require.Len(t, acme.Children, 2)

	beta := acme.Children[0]
	assert.Equal(t, int64(50), beta.Client.ID)
	assert.Equal(t, 2, beta.UserCount)
	assert.Equal(t, 120, beta.DidCount)
	assert.Len(t, beta.Children, 2) // users are kept in the tree, just not printed
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	clients := []model.Client{
		{ID: 20, ParentID: ptr(999), Company: "Dangling Reseller", Level: model.LevelReseller},
	}
	roots := Build(clients, nil)
	require.Len(t, roots, 1)
	assert.Equal(t, int64(20), roots[0].Client.ID)
}

func TestWriteText(t *testing.T) {
	roots := Build(testClients(), map[int64]int{10: 200, 50: 120, 51: 80})

	var sb strings.Builder
	require.NoError(t, WriteText(&sb, roots))
	got := sb.String()

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 4) // owner, reseller, two clients; users omitted
	assert.Equal(t, "1 - E164 Networks (Owner, DIDs: 0)", lines[0])
	assert.Equal(t, "    10 - Acme Telecom (Clients: 2, DIDs: 200)", lines[1])
	assert.Equal(t, "        50 - Beta Pty (Users: 2, DIDs: 120)", lines[2])
	assert.Equal(t, "        51 - Gamma Ltd (Users: 0, DIDs: 80)", lines[3])
	assert.NotContains(t, got, "alice")
}

func didSet(prefix string, suffixes ...int) []model.DidDetail {
	out := make([]model.DidDetail, 0, len(suffixes))
	for _, s := range suffixes {
		out = append(out, model.DidDetail{Number: prefix + twoDigit(s)})
	}
	return out
}

func twoDigit(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestAuditBlocks_CompleteBlock(t *testing.T) {
	var details []model.DidDetail
	for i := 0; i < 100; i++ {
		details = append(details, model.DidDetail{Number: "611300" + twoDigit(i)})
	}
	assert.Empty(t, AuditBlocks(details))
}

func TestAuditBlocks_MissingMembers(t *testing.T) {
	details := didSet("611300", 0, 1, 2, 4)
	out := AuditBlocks(details)
	require.Len(t, out, 1)
	assert.Equal(t, "611300", out[0].Prefix)
	assert.Len(t, out[0].Missing, 96)
	assert.Equal(t, "61130003", out[0].Missing[0])
	assert.Equal(t, "61130005", out[0].Missing[1])
}

func TestAuditBlocks_SortedByPrefix(t *testing.T) {
	details := append(didSet("61800", 0), didSet("61300", 5)...)
	out := AuditBlocks(details)
	require.Len(t, out, 2)
	assert.Equal(t, "61300", out[0].Prefix)
	assert.Equal(t, "61800", out[1].Prefix)
}

func TestAuditBlocks_IgnoresShortAndNonNumeric(t *testing.T) {
	details := []model.DidDetail{
		{Number: "61"},
		{Number: "6130ab"},
	}
	assert.Empty(t, AuditBlocks(details))
}
