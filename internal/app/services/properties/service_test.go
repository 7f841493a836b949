package properties

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/storage/memory"
	"github.com/taimoor511/certiqas-backend/internal/ipfs"
	"github.com/taimoor511/certiqas-backend/internal/ledger"
)

type fakeUploader struct {
	pins     int
	jsonDocs []interface{}
	fail     bool
}

func (f *fakeUploader) PinFile(_ context.Context, _ []byte, name string) (ipfs.Pin, error) {
	if f.fail {
		return ipfs.Pin{}, apperr.Upstream(errors.New("boom"), "content store rejected %s", name)
	}
	f.pins++
	cid := fmt.Sprintf("QmPin%d", f.pins)
	return ipfs.Pin{CID: cid, URL: "https://gw/ipfs/" + cid}, nil
}

func (f *fakeUploader) PinJSON(_ context.Context, doc interface{}) (string, error) {
	if f.fail {
		return "", apperr.Upstream(errors.New("boom"), "content store rejected metadata")
	}
	f.jsonDocs = append(f.jsonDocs, doc)
	return "https://gw/ipfs/QmMeta", nil
}

type fakeMinter struct {
	calls    []ledger.MintPayload
	fail     error
	nextHash string
}

func (f *fakeMinter) Mint(_ context.Context, payload ledger.MintPayload) (string, error) {
	f.calls = append(f.calls, payload)
	if f.fail != nil {
		return "", f.fail
	}
	if f.nextHash == "" {
		return "0xtx1", nil
	}
	return f.nextHash, nil
}

func (f *fakeMinter) WalletAddress() string { return "0xwallet" }

type fixture struct {
	store    *memory.Store
	uploader *fakeUploader
	minter   *fakeMinter
	service  *Service
	admin    policy.Actor
	dev      policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()

	admin, err := store.CreateUser(context.Background(), user.User{
		Name:  "Root",
		Email: "root@example.com",
		Role:  user.RoleSuperAdmin,
	})
	require.NoError(t, err)
	dev, err := store.CreateUser(context.Background(), user.User{
		Name:        "Dev One",
		Email:       "dev@example.com",
		CompanyName: "Emaar Properties",
		Role:        user.RoleDeveloper,
	})
	require.NoError(t, err)

	uploader := &fakeUploader{}
	minter := &fakeMinter{}
	service := New(store, policy.New(store), uploader, minter,
		func() int64 { return 1700000000 }, Config{}, nil)

	return &fixture{
		store:    store,
		uploader: uploader,
		minter:   minter,
		service:  service,
		admin:    policy.Actor{UserID: admin.ID, Role: user.RoleSuperAdmin},
		dev:      policy.Actor{UserID: dev.ID, Role: user.RoleDeveloper},
	}
}

func sampleInput() SubmissionInput {
	return SubmissionInput{
		PropertyID:      "PROP-001",
		ReraPermit:      "RERA-12345",
		DeveloperName:   "Emaar Properties",
		ProjectName:     "Marina Vista",
		Location:        "Dubai Marina",
		UnitType:        "2BR",
		BrokerCompanies: []string{"Alpha Realty", "Beta Homes"},
		Description:     "Sea view",
		Image:           &FileUpload{Name: "villa.png", Data: []byte("img")},
	}
}

func TestSubmitDeveloperCreatesPending(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, property.StatusPending, cert.MintingStatus)
	assert.Empty(t, cert.MintTransactionHash)
	assert.Equal(t, "Emaar Properties", cert.DeveloperName)
	assert.Equal(t, "QmPin1", cert.ImageCID)
	assert.Equal(t, "https://gw/ipfs/QmMeta", cert.TokenURI)
	assert.Equal(t, int64(1700000000), cert.VerificationDate)
	assert.NotEmpty(t, cert.VerificationHash)
	assert.Empty(t, f.minter.calls, "non-admin submission must not mint")
}

func TestSubmitDeveloperNameIsPinnedToScope(t *testing.T) {
	f := newFixture(t)

	input := sampleInput()
	input.DeveloperName = "Someone Else"
	cert, err := f.service.Submit(context.Background(), f.dev, input)
	require.NoError(t, err)
	assert.Equal(t, "Emaar Properties", cert.DeveloperName)
}

func TestSubmitAdminMintsBeforePersist(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.admin, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, property.StatusApproved, cert.MintingStatus)
	assert.Equal(t, "0xtx1", cert.MintTransactionHash)
	require.Len(t, f.minter.calls, 1)

	payload := f.minter.calls[0]
	assert.Equal(t, "0xwallet", payload.To)
	assert.Equal(t, "Alpha Realty,Beta Homes", payload.BrokerCompany)
	assert.Len(t, payload.ListingID, 6)
	assert.Equal(t, cert.VerificationHash, payload.VerificationHash)
}

func TestSubmitAdminMintFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.minter.fail = ledger.ErrMintFailed

	_, err := f.service.Submit(context.Background(), f.admin, sampleInput())
	require.Error(t, err)
	assert.True(t, apperr.IsUpstream(err))

	_, err = f.store.GetPropertyByPropertyID(context.Background(), "PROP-001")
	assert.True(t, apperr.IsNotFound(err), "failed admin mint must leave no record")
}

func TestSubmitDuplicatePropertyID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	_, err = f.service.Submit(context.Background(), f.dev, sampleInput())
	assert.True(t, apperr.IsConflict(err), "expected conflict, got %v", err)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	input := sampleInput()
	input.PropertyID = "   "
	_, err := f.service.Submit(context.Background(), f.dev, input)
	assert.True(t, apperr.IsValidation(err))

	input = sampleInput()
	input.Image = nil
	_, err = f.service.Submit(context.Background(), f.dev, input)
	assert.True(t, apperr.IsValidation(err))
}

func TestSubmitRequireDocumentFile(t *testing.T) {
	f := newFixture(t)
	f.service.cfg.RequireDocumentFile = true

	_, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	assert.True(t, apperr.IsValidation(err))

	input := sampleInput()
	input.Document = &FileUpload{Name: "deed.pdf", Data: []byte("pdf")}
	cert, err := f.service.Submit(context.Background(), f.dev, input)
	require.NoError(t, err)
	assert.Equal(t, "QmPin2", cert.FileCID)
}

func TestDecideApproveMints(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	decided, err := f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, property.StatusApproved, decided.MintingStatus)
	assert.Equal(t, "0xtx1", decided.MintTransactionHash)
	require.Len(t, f.minter.calls, 1)
}

func TestDecideRejectSkipsMint(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	decided, err := f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, property.StatusRejected, decided.MintingStatus)
	assert.Empty(t, decided.MintTransactionHash)
	assert.Empty(t, f.minter.calls)
}

func TestDecideTerminalStateConflicts(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)
	_, err = f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusRejected)
	require.NoError(t, err)

	_, err = f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusApproved)
	assert.True(t, apperr.IsConflict(err), "terminal records must not transition")
}

func TestDecideMintFailureLeavesPending(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	f.minter.fail = ledger.ErrNotConfirmed
	_, err = f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusApproved)
	assert.True(t, apperr.IsUpstream(err))

	stored, err := f.store.GetProperty(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.Equal(t, property.StatusPending, stored.MintingStatus)
	assert.Empty(t, stored.MintTransactionHash)

	// Decision stays retryable.
	f.minter.fail = nil
	decided, err := f.service.Decide(context.Background(), f.admin, cert.ID, property.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, property.StatusApproved, decided.MintingStatus)
}

func TestDecideRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)

	cert, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	_, err = f.service.Decide(context.Background(), f.dev, cert.ID, property.StatusApproved)
	assert.True(t, apperr.IsForbidden(err))
}

func TestListIsScoped(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	other := sampleInput()
	other.PropertyID = "PROP-002"
	other.DeveloperName = "DAMAC"
	_, err = f.service.Submit(context.Background(), f.admin, other)
	require.NoError(t, err)

	all, err := f.service.List(context.Background(), f.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.service.List(context.Background(), f.dev, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "PROP-001", mine[0].PropertyID)
}

func TestGetOutOfScopeIsForbidden(t *testing.T) {
	f := newFixture(t)

	other := sampleInput()
	other.DeveloperName = "DAMAC"
	cert, err := f.service.Submit(context.Background(), f.admin, other)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.dev, cert.ID)
	assert.True(t, apperr.IsForbidden(err))
}

func TestPublicListOnlyApproved(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	approved := sampleInput()
	approved.PropertyID = "PROP-002"
	_, err = f.service.Submit(context.Background(), f.admin, approved)
	require.NoError(t, err)

	page, err := f.service.PublicList(context.Background(), PublicQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Properties, 1)
	assert.Equal(t, "PROP-002", page.Properties[0].PropertyID)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPublicListPaginationValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PublicList(context.Background(), PublicQuery{Page: -1})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.service.PublicList(context.Background(), PublicQuery{Limit: 101})
	assert.True(t, apperr.IsValidation(err))
}

func TestPublicGetHidesUndecided(t *testing.T) {
	f := newFixture(t)

	pending, err := f.service.Submit(context.Background(), f.dev, sampleInput())
	require.NoError(t, err)

	_, err = f.service.PublicGet(context.Background(), pending.ID)
	assert.True(t, apperr.IsNotFound(err))

	approved, err := f.service.Decide(context.Background(), f.admin, pending.ID, property.StatusApproved)
	require.NoError(t, err)

	got, err := f.service.PublicGet(context.Background(), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, "PROP-001", got.PropertyID)
}

func TestMetadataDocumentShape(t *testing.T) {
	f := newFixture(t)

	input := sampleInput()
	input.Bedrooms = "2"
	_, err := f.service.Submit(context.Background(), f.dev, input)
	require.NoError(t, err)

	require.Len(t, f.uploader.jsonDocs, 1)
	doc, ok := f.uploader.jsonDocs[0].(metadata)
	require.True(t, ok)

	assert.Equal(t, "Certiqas", doc.Name)
	assert.Equal(t, "ipfs://QmPin1", doc.Image)
	require.Len(t, doc.Attributes, 12)
	assert.Equal(t, "Property ID", doc.Attributes[0].TraitType)
	assert.Equal(t, "Verification Date", doc.Attributes[5].TraitType)
	assert.Equal(t, "date", doc.Attributes[5].DisplayType)
	assert.Equal(t, "2", doc.Attributes[9].Value)
	assert.Equal(t, "N/A", doc.Attributes[10].Value)
	assert.Equal(t, "N/A", doc.Attributes[11].Value)
}
