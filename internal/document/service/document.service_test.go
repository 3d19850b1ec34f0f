package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkpad/internal/document/model"
	"sparkpad/internal/document/repository"
	"sparkpad/internal/document/service"
	projectModel "sparkpad/internal/project/model"
	"sparkpad/internal/testutil"
	"sparkpad/pkg/apperr"
	"sparkpad/socket"
	"sparkpad/store"
)

func setup(t *testing.T) (*testutil.Fixture, *service.DocumentService, store.User, projectModel.ProjectView) {
	t.Helper()
	f := testutil.New(t)
	svc := service.NewDocumentService(repository.NewDocumentRepository(f.Store), f.Projects, f.Hub)
	ana := f.User(t, "Ana")
	return f, svc, ana, f.Project(t, ana, "Apollo")
}

func intPtr(i int) *int { return &i }

func rowContents(doc store.Document) []string {
	out := make([]string, 0, len(doc.Rows))
	for _, r := range doc.Rows {
		out = append(out, r.Content)
	}
	return out
}

func TestCreateDocumentDefaultsTitle(t *testing.T) {
	_, svc, ana, p := setup(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, doc.Title)
	assert.Empty(t, doc.Rows)

	named, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{Title: " Plan "})
	require.NoError(t, err)
	assert.Equal(t, "Plan", named.Title)

	_, err = svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{Title: strings.Repeat("t", model.MaxTitleLength+1)})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRowOperations(t *testing.T) {
	f, svc, ana, p := setup(t)
	ctx := context.Background()
	doc, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{Title: "Plan"})
	require.NoError(t, err)

	for _, c := range []string{"one", "two", "three"} {
		doc, err = svc.InsertRow(ctx, p.ID, ana.ID, doc.ID, model.InsertRowRequest{Content: c})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"one", "two", "three"}, rowContents(doc))

	doc, err = svc.InsertRow(ctx, p.ID, ana.ID, doc.ID, model.InsertRowRequest{Content: "zero", Index: intPtr(-5)})
	require.NoError(t, err)
	doc, err = svc.InsertRow(ctx, p.ID, ana.ID, doc.ID, model.InsertRowRequest{Content: "last", Index: intPtr(99)})
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "one", "two", "three", "last"}, rowContents(doc))

	doc, err = svc.MoveRow(ctx, p.ID, ana.ID, doc.ID, doc.Rows[0].ID, model.MoveRowRequest{Index: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "zero", "three", "last"}, rowContents(doc))

	doc, err = svc.MoveRow(ctx, p.ID, ana.ID, doc.ID, doc.Rows[0].ID, model.MoveRowRequest{Index: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "zero", "three", "last", "one"}, rowContents(doc))

	doc, err = svc.UpdateRow(ctx, p.ID, ana.ID, doc.ID, doc.Rows[1].ID, model.UpdateRowRequest{Content: `<p onclick="x()">0</p>`})
	require.NoError(t, err)
	assert.Equal(t, "<p>0</p>", doc.Rows[1].Content)
	assert.Equal(t, ana.ID, doc.Rows[1].UpdatedBy)

	doc, err = svc.DeleteRow(ctx, p.ID, ana.ID, doc.ID, doc.Rows[4].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "<p>0</p>", "three", "last"}, rowContents(doc))

	_, err = svc.DeleteRow(ctx, p.ID, ana.ID, doc.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := svc.GetDocument(ctx, p.ID, ana.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, rowContents(doc), rowContents(stored))

	for _, typ := range f.Hub.Types() {
		assert.Equal(t, socket.DocumentUpdateType, typ)
	}
}

func TestGetDocumentsSummaries(t *testing.T) {
	_, svc, ana, p := setup(t)
	ctx := context.Background()

	older, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{Title: "Older"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{Title: "Newer"})
	require.NoError(t, err)
	_, err = svc.InsertRow(ctx, p.ID, ana.ID, newer.ID, model.InsertRowRequest{Content: "<h1>Goals</h1>"})
	require.NoError(t, err)
	_, err = svc.InsertRow(ctx, p.ID, ana.ID, newer.ID, model.InsertRowRequest{Content: strings.Repeat("a", 150)})
	require.NoError(t, err)

	docs, err := svc.GetDocuments(ctx, p.ID, ana.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, newer.ID, docs[0].ID)
	assert.Equal(t, older.ID, docs[1].ID)
	assert.Equal(t, 2, docs[0].RowCount)
	assert.True(t, strings.HasPrefix(docs[0].Snippet, "Goals aaa"))
	assert.Len(t, []rune(docs[0].Snippet), model.SnippetLength+3)
	assert.Equal(t, "", docs[1].Snippet)
}

func TestDocumentAccess(t *testing.T) {
	f, svc, ana, p := setup(t)
	ctx := context.Background()
	vic, eve := f.User(t, "Vic"), f.User(t, "Eve")
	f.Join(t, p.ID, ana, vic, projectModel.RoleViewer)

	doc, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{})
	require.NoError(t, err)

	_, err = svc.GetDocument(ctx, p.ID, vic.ID, doc.ID)
	assert.NoError(t, err)
	_, err = svc.InsertRow(ctx, p.ID, vic.ID, doc.ID, model.InsertRowRequest{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.GetDocuments(ctx, p.ID, eve.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.GetDocument(ctx, p.ID, ana.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRenameAndDelete(t *testing.T) {
	f, svc, ana, p := setup(t)
	ctx := context.Background()
	doc, err := svc.CreateDocument(ctx, p.ID, ana.ID, model.CreateDocRequest{})
	require.NoError(t, err)

	_, err = svc.UpdateTitle(ctx, p.ID, ana.ID, doc.ID, model.UpdateDocRequest{Title: "<i></i>"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	renamed, err := svc.UpdateTitle(ctx, p.ID, ana.ID, doc.ID, model.UpdateDocRequest{Title: "Roadmap"})
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", renamed.Title)

	require.NoError(t, svc.DeleteDocument(ctx, p.ID, ana.ID, doc.ID))
	assert.ErrorIs(t, svc.DeleteDocument(ctx, p.ID, ana.ID, doc.ID), apperr.ErrNotFound)
	types := f.Hub.Types()
	assert.Equal(t, socket.DocumentDeleteType, types[len(types)-1])
}
