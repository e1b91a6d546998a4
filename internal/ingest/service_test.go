package ingest

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Saujanya0910/csv-to-json/internal/agedist"
	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/upload"
	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// fakeStore keeps inserted users in memory.
type fakeStore struct {
	users     []domain.User
	bulkCalls int
	oneCalls  int
	bulkErr   error
	oneErr    error
	fetchErr  error
	preloaded []domain.UserAge
}

func (f *fakeStore) InsertUsersInBulk(_ context.Context, users []domain.User) (int64, error) {
	f.bulkCalls++
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	f.users = append(f.users, users...)
	return int64(len(users)), nil
}

func (f *fakeStore) InsertUser(_ context.Context, name string, age int, address domain.Address, info records.Record) error {
	f.oneCalls++
	if f.oneErr != nil {
		return f.oneErr
	}
	f.users = append(f.users, domain.User{Name: name, Age: age, Address: address, AdditionalInfo: info})
	return nil
}

func (f *fakeStore) GetAllUsers(context.Context) ([]domain.UserAge, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := append([]domain.UserAge(nil), f.preloaded...)
	for _, u := range f.users {
		out = append(out, domain.UserAge{Name: u.Name, Age: u.Age})
	}
	return out, nil
}

const threeRows = "name.firstName,name.lastName,age\nA,One,15\nB,Two,45\nC,Three,65\n"

func writeUpload(t *testing.T, name, content string) upload.File {
	t.Helper()
	p := filepath.Join(t.TempDir(), "csvFile-1234.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return upload.File{Path: p, OriginalName: name, MIMEType: "text/csv", Size: int64(len(content))}
}

func newService(store Store, opts Options) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Service{
		Store:       store,
		Constraints: upload.DefaultConstraints(),
		Options:     opts,
		Logger:      log.New(&buf, "", 0),
	}, &buf
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("upload %s still present (stat err = %v)", path, err)
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc, logs := newService(store, Options{})
	f := writeUpload(t, "people.csv", threeRows)

	res, err := svc.Process(context.Background(), f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertRemoved(t, f.Path)

	want := agedist.Distribution{
		{Group: "<20", Percentage: "33.33"},
		{Group: "20-40", Percentage: "0.00"},
		{Group: "40-60", Percentage: "33.33"},
		{Group: ">60", Percentage: "33.33"},
	}
	for i := range want {
		if res.Current[i] != want[i] {
			t.Fatalf("current[%d] = %+v, want %+v", i, res.Current[i], want[i])
		}
	}
	if res.Overall != nil {
		t.Fatalf("overall = %v, want nil when disabled", res.Overall)
	}

	if store.bulkCalls != 1 || len(store.users) != 3 || res.Inserted != 3 {
		t.Fatalf("bulk=%d stored=%d inserted=%d", store.bulkCalls, len(store.users), res.Inserted)
	}
	for i, u := range store.users {
		if len(u.AdditionalInfo) != 0 {
			t.Fatalf("user %d additionalInfo = %v, want empty", i, u.AdditionalInfo)
		}
	}
	if res.Records[0].Name != "A One" || res.Records[2].Age != 65 {
		t.Fatalf("records = %+v", res.Records)
	}
	if !strings.Contains(logs.String(), "Current Age-Group % Distribution: <20=33.33 20-40=0.00 40-60=33.33 >60=33.33") {
		t.Fatalf("logs missing distribution line:\n%s", logs)
	}
}

func TestProcess_OverallDistribution(t *testing.T) {
	t.Parallel()

	store := &fakeStore{preloaded: []domain.UserAge{{Name: "old", Age: 25}}}
	svc, logs := newService(store, Options{OverallDistribution: true})

	res, err := svc.Process(context.Background(), writeUpload(t, "people.csv", threeRows))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := res.Overall.Get("20-40"); got != "25.00" {
		t.Fatalf("overall 20-40 = %s, want 25.00", got)
	}
	if !strings.Contains(logs.String(), "Overall Age-Group % Distribution") {
		t.Fatalf("logs missing overall line:\n%s", logs)
	}
}

func TestProcess_SingleInsertMode(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc, _ := newService(store, Options{InsertMode: InsertSingle})

	res, err := svc.Process(context.Background(), writeUpload(t, "people.csv", threeRows))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.oneCalls != 3 || store.bulkCalls != 0 || res.Inserted != 3 {
		t.Fatalf("single=%d bulk=%d inserted=%d", store.oneCalls, store.bulkCalls, res.Inserted)
	}
}

func TestProcess_ValidationFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc, _ := newService(store, Options{})
	f := writeUpload(t, "notes.txt", threeRows)

	_, err := svc.Process(context.Background(), f)
	var verr *upload.ValidationError
	if !errors.As(err, &verr) || verr.Kind != upload.InvalidExtension {
		t.Fatalf("err = %v, want InvalidExtension", err)
	}
	if store.bulkCalls != 0 {
		t.Fatalf("store touched after validation failure")
	}
	assertRemoved(t, f.Path)
}

func TestProcess_MissingHeader(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&fakeStore{}, Options{})
	_, err := svc.Process(context.Background(), writeUpload(t, "people.csv", "name.firstName,name.lastName\nA,B\n"))
	if err == nil || err.Error() != "Missing required header: age" {
		t.Fatalf("err = %v", err)
	}
}

func TestProcess_PersistenceFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	store := &fakeStore{bulkErr: boom}
	svc, _ := newService(store, Options{})
	f := writeUpload(t, "people.csv", threeRows)

	_, err := svc.Process(context.Background(), f)
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "bulk insert" {
		t.Fatalf("err = %v, want bulk insert PersistenceError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause lost: %v", err)
	}
	assertRemoved(t, f.Path)
}

func TestProcess_FetchFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{fetchErr: errors.New("timeout")}
	svc, _ := newService(store, Options{OverallDistribution: true})

	_, err := svc.Process(context.Background(), writeUpload(t, "people.csv", threeRows))
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "fetch users" {
		t.Fatalf("err = %v, want fetch users PersistenceError", err)
	}
}

func TestProcess_SingleInsertFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{oneErr: errors.New("name is required")}
	svc, _ := newService(store, Options{InsertMode: InsertSingle})

	_, err := svc.Process(context.Background(), writeUpload(t, "people.csv", threeRows))
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "insert user" {
		t.Fatalf("err = %v, want insert user PersistenceError", err)
	}
	if !strings.Contains(err.Error(), "row 0") {
		t.Fatalf("err = %q, want failing row index", err)
	}
}

func TestProcess_UnknownInsertMode(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&fakeStore{}, Options{InsertMode: "upsert"})
	_, err := svc.Process(context.Background(), writeUpload(t, "people.csv", threeRows))
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
}

func TestProcess_HeaderOnlyFileSkipsInsert(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc, _ := newService(store, Options{})

	res, err := svc.Process(context.Background(), writeUpload(t, "people.csv", "name.firstName,name.lastName,age\n"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.bulkCalls != 0 {
		t.Fatalf("bulk insert called for an empty batch")
	}
	if len(res.Records) != 0 || res.Current.Get("<20") != "0.00" {
		t.Fatalf("res = %+v", res)
	}
}

func TestProcess_ParseFailure(t *testing.T) {
	orig := parseFile
	defer func() { parseFile = orig }()
	parseFile = func(string) ([]records.Record, error) {
		return nil, errors.New("unexpected EOF")
	}

	store := &fakeStore{}
	svc, _ := newService(store, Options{})
	f := writeUpload(t, "people.csv", threeRows)

	_, err := svc.Process(context.Background(), f)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if err.Error() != "CSV parsing failed: unexpected EOF" {
		t.Fatalf("message = %q", err)
	}
	if store.bulkCalls != 0 {
		t.Fatalf("store touched after parse failure")
	}
	assertRemoved(t, f.Path)
}

func TestProcess_UnreadableUploadIsRejected(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&fakeStore{}, Options{})
	f := upload.File{Path: t.TempDir(), OriginalName: "people.csv", MIMEType: "text/csv", Size: 1}

	_, err := svc.Process(context.Background(), f)
	var verr *upload.ValidationError
	if !errors.As(err, &verr) || verr.Kind != upload.HeaderUnreadable {
		t.Fatalf("err = %v, want HeaderUnreadable", err)
	}
}

func TestErrorsMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	if got := (&ParseError{Err: cause}).Error(); got != "CSV parsing failed: boom" {
		t.Fatalf("ParseError = %q", got)
	}
	if got := (&PersistenceError{Op: "bulk insert", Err: cause}).Error(); got != "database bulk insert failed: boom" {
		t.Fatalf("PersistenceError = %q", got)
	}
}
