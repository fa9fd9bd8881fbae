package service

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"challengeutils/internal/adapters/synapse"
	"challengeutils/internal/core/annotations"
	perr "challengeutils/internal/platform/errors"
	dom "challengeutils/internal/services/submissions/domain"
)

// fakeRemote is an in-memory RemotePort
type fakeRemote struct {
	statuses     map[string]synapse.SubmissionStatus
	bundles      map[string][]synapse.SubmissionBundle
	stored       []synapse.SubmissionStatus
	fetchedID    string
	fetchedVer   int64
	fetchContent string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		statuses: map[string]synapse.SubmissionStatus{},
		bundles:  map[string][]synapse.SubmissionBundle{},
	}
}

func (f *fakeRemote) GetSubmissionStatus(_ context.Context, id string) (synapse.SubmissionStatus, error) {
	st, ok := f.statuses[id]
	if !ok {
		return synapse.SubmissionStatus{}, perr.NotFoundf("submission %s", id)
	}
	return st, nil
}

func (f *fakeRemote) StoreSubmissionStatus(_ context.Context, st synapse.SubmissionStatus) (synapse.SubmissionStatus, error) {
	f.statuses[st.ID] = st
	f.stored = append(f.stored, st)
	return st, nil
}

func (f *fakeRemote) GetSubmission(_ context.Context, id string) (synapse.Submission, error) {
	for _, bs := range f.bundles {
		for _, b := range bs {
			if b.Submission.ID == id {
				return b.Submission, nil
			}
		}
	}
	return synapse.Submission{}, perr.NotFoundf("submission %s", id)
}

func (f *fakeRemote) SubmissionBundles(
	_ context.Context, evalID, statusFilter string, fn func(synapse.SubmissionBundle) error,
) error {
	for _, b := range f.bundles[evalID] {
		if statusFilter != "" && b.SubmissionStatus.Status != statusFilter {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRemote) FetchEntityFile(_ context.Context, entityID string, version int64, dir string) (string, error) {
	f.fetchedID, f.fetchedVer = entityID, version
	dst := filepath.Join(dir, "predictions.csv")
	if err := os.WriteFile(dst, []byte(f.fetchContent), 0o600); err != nil {
		return "", err
	}
	return dst, nil
}

type fakeAudit struct{ entries []dom.AuditEntry }

func (f *fakeAudit) Record(_ context.Context, e dom.AuditEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func TestAnnotateMergesAndStores(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["9700001"] = synapse.SubmissionStatus{ID: "9700001", Status: "SCORED"}
	audit := &fakeAudit{}
	svc := New(remote, audit)

	st, err := svc.Annotate(context.Background(), "9700001",
		annotations.Flat(annotations.Map{"score": annotations.Double(0.9)}),
		dom.AnnotateOptions{})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	priv := annotations.Extract(st.Annotations, true)
	if priv["score"] != annotations.Double(0.9) {
		t.Fatalf("private = %#v", priv)
	}
	if len(remote.stored) != 1 {
		t.Fatalf("stored %d times", len(remote.stored))
	}
	if len(audit.entries) != 1 || audit.entries[0].Op != "annotate" {
		t.Fatalf("audit = %+v", audit.entries)
	}
	if audit.entries[0].ID == "" || audit.entries[0].CreatedAt.IsZero() {
		t.Fatal("audit entry missing id or timestamp")
	}
	if got := audit.entries[0].EvaluationID; got != "" {
		t.Fatalf("evaluation_id = %q, a status record names no queue", got)
	}
}

func TestAnnotateConflictStoresNothing(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["1"] = synapse.SubmissionStatus{
		ID:          "1",
		Annotations: annotations.Encode(annotations.Map{"a": annotations.Long(1)}, true),
	}
	svc := New(remote, nil)

	_, err := svc.Annotate(context.Background(), "1",
		annotations.Flat(annotations.Map{"a": annotations.Long(2)}),
		dom.AnnotateOptions{ToPublic: true})
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	if len(remote.stored) != 0 {
		t.Fatal("conflict must not persist anything")
	}
	if got := annotations.ConflictKeys(err); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("conflict keys = %v", got)
	}
}

func TestSetACLAllWalksQueue(t *testing.T) {
	remote := newFakeRemote()
	mk := func(id string, status string) synapse.SubmissionBundle {
		return synapse.SubmissionBundle{
			Submission: synapse.Submission{ID: id, EvaluationID: "e1"},
			SubmissionStatus: synapse.SubmissionStatus{
				ID:          id,
				Status:      status,
				Annotations: annotations.Encode(annotations.Map{"rank": annotations.Long(1)}, true),
			},
		}
	}
	remote.bundles["e1"] = []synapse.SubmissionBundle{mk("1", "SCORED"), mk("2", "SCORED"), mk("3", "INVALID")}
	svc := New(remote, nil)

	n, err := svc.SetACLAll(context.Background(), "e1", []string{"rank"}, false, "SCORED")
	if err != nil {
		t.Fatalf("SetACLAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated %d, want 2 (status filter)", n)
	}
	for _, st := range remote.stored {
		if _, ok := annotations.Extract(st.Annotations, false)["rank"]; !ok {
			t.Fatalf("rank still private on %s", st.ID)
		}
	}
}

func TestSetACLAllTreatsALLAsNoFilter(t *testing.T) {
	remote := newFakeRemote()
	remote.bundles["e1"] = []synapse.SubmissionBundle{
		{Submission: synapse.Submission{ID: "1"}, SubmissionStatus: synapse.SubmissionStatus{ID: "1", Status: "SCORED"}},
		{Submission: synapse.Submission{ID: "2"}, SubmissionStatus: synapse.SubmissionStatus{ID: "2", Status: "INVALID"}},
	}
	svc := New(remote, nil)
	n, err := svc.SetACLAll(context.Background(), "e1", []string{"x"}, true, "ALL")
	if err != nil {
		t.Fatalf("SetACLAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated %d, want 2", n)
	}
}

func TestChangeAllStatuses(t *testing.T) {
	remote := newFakeRemote()
	remote.bundles["e1"] = []synapse.SubmissionBundle{
		{Submission: synapse.Submission{ID: "1"}, SubmissionStatus: synapse.SubmissionStatus{ID: "1", Status: "SCORED"}},
		{Submission: synapse.Submission{ID: "2"}, SubmissionStatus: synapse.SubmissionStatus{ID: "2", Status: "SCORED"}},
	}
	svc := New(remote, nil)
	n, err := svc.ChangeAllStatuses(context.Background(), "e1", "SCORED", "VALIDATED")
	if err != nil {
		t.Fatalf("ChangeAllStatuses: %v", err)
	}
	if n != 2 {
		t.Fatalf("changed %d", n)
	}
	for _, st := range remote.stored {
		if st.Status != "VALIDATED" {
			t.Fatalf("status = %s", st.Status)
		}
	}
}

func TestContributorsWindowFiltering(t *testing.T) {
	remote := newFakeRemote()
	sub := func(id, created string, principals ...string) synapse.SubmissionBundle {
		s := synapse.Submission{ID: id, CreatedOn: created}
		for _, p := range principals {
			s.Contributors = append(s.Contributors, synapse.Contributor{PrincipalID: p})
		}
		return synapse.SubmissionBundle{Submission: s}
	}
	remote.bundles["e1"] = []synapse.SubmissionBundle{
		sub("1", "2026-01-10T12:00:00.000Z", "100", "101"),
		sub("2", "2026-02-01T00:00:00.000Z", "102"),
	}
	remote.bundles["e2"] = []synapse.SubmissionBundle{
		sub("3", "2026-01-15T08:30:00.000Z", "101", "103"),
	}
	svc := New(remote, nil)

	w := dom.Window{
		Since: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC),
	}
	got, err := svc.Contributors(context.Background(), []string{"e1", "e2"}, "", w)
	if err != nil {
		t.Fatalf("Contributors: %v", err)
	}
	want := []string{"100", "101", "103"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("contributors = %v, want %v", got, want)
	}
}

func TestWindowBoundsAreInclusive(t *testing.T) {
	at := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	w := dom.Window{Since: at, Until: at}
	if !w.Contains(at) {
		t.Fatal("bounds must be inclusive")
	}
	if w.Contains(at.Add(time.Minute)) {
		t.Fatal("after until must be excluded")
	}
	if (dom.Window{}).Contains(at) != true {
		t.Fatal("open window contains everything")
	}
}

func TestDownloadParsesEntityBundle(t *testing.T) {
	remote := newFakeRemote()
	remote.bundles["e1"] = []synapse.SubmissionBundle{{
		Submission: synapse.Submission{
			ID:                   "9700001",
			EvaluationID:         "e1",
			DockerRepositoryName: "docker.synapse.org/syn123/model",
			DockerDigest:         "sha256:abc",
			EntityID:             "syn456",
			EntityBundleJSON:     `{"entity": {"id": "syn456", "versionNumber": 3, "concreteType": "org.sagebionetworks.repo.model.FileEntity"}}`,
		},
	}}
	svc := New(remote, nil)

	info, err := svc.Download(context.Background(), "9700001", "")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if info.EntityVersion != 3 || info.EntityType == "" || info.DockerDigest != "sha256:abc" {
		t.Fatalf("info = %+v", info)
	}
	if info.FilePath != "" || remote.fetchedID != "" {
		t.Fatal("empty dir must not trigger a file fetch")
	}
}

func TestDownloadFetchesFileEntity(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchContent = "id,score\n1,0.9\n"
	remote.bundles["e1"] = []synapse.SubmissionBundle{{
		Submission: synapse.Submission{
			ID:               "9700001",
			EvaluationID:     "e1",
			EntityID:         "syn456",
			EntityBundleJSON: `{"entity": {"id": "syn456", "versionNumber": 3, "concreteType": "org.sagebionetworks.repo.model.FileEntity"}}`,
		},
	}}
	svc := New(remote, nil)

	dir := t.TempDir()
	info, err := svc.Download(context.Background(), "9700001", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if info.FilePath != filepath.Join(dir, "predictions.csv") {
		t.Fatalf("file path = %q", info.FilePath)
	}
	if remote.fetchedID != "syn456" || remote.fetchedVer != 3 {
		t.Fatalf("fetched %s@%d, want syn456@3", remote.fetchedID, remote.fetchedVer)
	}
	b, err := os.ReadFile(info.FilePath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != remote.fetchContent {
		t.Fatalf("content = %q", b)
	}
}

func TestDownloadSkipsDockerSubmissions(t *testing.T) {
	remote := newFakeRemote()
	remote.bundles["e1"] = []synapse.SubmissionBundle{{
		Submission: synapse.Submission{
			ID:                   "9700001",
			DockerRepositoryName: "docker.synapse.org/syn123/model",
			DockerDigest:         "sha256:abc",
			EntityID:             "syn456",
			EntityBundleJSON:     `{"entity": {"id": "syn456", "concreteType": "org.sagebionetworks.repo.model.docker.DockerRepository"}}`,
		},
	}}
	svc := New(remote, nil)

	info, err := svc.Download(context.Background(), "9700001", t.TempDir())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if info.FilePath != "" || remote.fetchedID != "" {
		t.Fatal("a docker submission has no file to fetch")
	}
}

func TestAnnotateFileJSONFlat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annots.json")
	if err := os.WriteFile(path, []byte(`{"rank": 4, "auc": 0.91, "team": "blue"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	remote := newFakeRemote()
	remote.statuses["1"] = synapse.SubmissionStatus{ID: "1"}
	svc := New(remote, nil)

	st, err := svc.AnnotateFile(context.Background(), "1", path, dom.AnnotateOptions{})
	if err != nil {
		t.Fatalf("AnnotateFile: %v", err)
	}
	priv := annotations.Extract(st.Annotations, true)
	if priv["rank"] != annotations.Long(4) {
		t.Fatalf("rank = %#v, integral JSON number must stay a long", priv["rank"])
	}
	if priv["auc"] != annotations.Double(0.91) {
		t.Fatalf("auc = %#v", priv["auc"])
	}
}

func TestParseJSONRejectsMixedDocument(t *testing.T) {
	doc := `{"stringAnnos": [{"key": "team", "value": "blue", "isPrivate": false}], "score": 5}`
	_, err := ParseJSON([]byte(doc))
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("document mixing kind lists with flat keys must fail fast, got %v", err)
	}
}

func TestAnnotateFileYAMLTyped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annots.yaml")
	doc := "stringAnnos:\n  - key: team\n    value: blue\n    isPrivate: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	remote := newFakeRemote()
	remote.statuses["1"] = synapse.SubmissionStatus{ID: "1"}
	svc := New(remote, nil)

	st, err := svc.AnnotateFile(context.Background(), "1", path, dom.AnnotateOptions{})
	if err != nil {
		t.Fatalf("AnnotateFile: %v", err)
	}
	pub := annotations.Extract(st.Annotations, false)
	if pub["team"] != annotations.String("blue") {
		t.Fatalf("team = %#v", pub["team"])
	}
}
