package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/model"
)

func TestSessionScopedProgress(t *testing.T) {
	f := newFixture(t)
	var monitors []*model.Asset
	for _, serial := range []string{"M-1", "M-2", "M-3"} {
		monitors = append(monitors, f.newAsset(t, "01", serial))
	}
	laptop := f.newAsset(t, "02", "L-1")
	f.newAsset(t, "02", "L-2")

	s, err := CreateSession(f.ctx, f.db, "monitors", []string{"01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"01"}, s.DeviceTypeCodes)
	assert.True(t, s.Open())

	p, err := SessionProgress(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionProgress{SessionID: s.ID, Checked: 0, Total: 3, Remaining: 3}, *p)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: monitors[0].ID, Found: true})
	require.NoError(t, err)

	p, err = SessionProgress(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Checked)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Remaining)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: laptop.ID, Found: true})
	assert.ErrorIs(t, err, ErrOutOfScope)

	remaining, err := RemainingAssets(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, monitors[1].InventoryNumber, remaining[0].InventoryNumber)
	assert.Equal(t, monitors[2].InventoryNumber, remaining[1].InventoryNumber)
}

func TestSessionWithoutScopeCoversAllAssets(t *testing.T) {
	f := newFixture(t)
	f.newAsset(t, "01", "M-1")
	laptop := f.newAsset(t, "02", "L-1")

	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)
	assert.Empty(t, s.DeviceTypeCodes)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: laptop.ID, Found: false})
	require.NoError(t, err)

	p, err := SessionProgress(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.Checked)
	assert.Equal(t, p.Total, p.Checked+p.Remaining)
}

func TestCreateSessionScope(t *testing.T) {
	f := newFixture(t)

	s, err := CreateSession(f.ctx, f.db, "both", []string{"02", "01", "02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02"}, s.DeviceTypeCodes)

	_, err = CreateSession(f.ctx, f.db, "bad", []string{"01", "77", "99", "77"})
	assert.ErrorIs(t, err, ErrUnknownDeviceTypes)
	se := requireKind(t, err, KindNotFound)
	assert.Equal(t, []string{"77", "99"}, se.Codes)

	sessions, err := ListSessions(f.ctx, f.db)
	require.NoError(t, err)
	require.Len(t, sessions, 1, "failed create must not leave a session behind")
	assert.Equal(t, []string{"01", "02"}, sessions[0].DeviceTypeCodes)
}

func TestCompleteSession(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")

	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)

	done, err := CompleteSession(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.False(t, done.Open())
	require.NotNil(t, done.CompletedAt)

	_, err = CompleteSession(f.ctx, f.db, s.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: true})
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = CompleteSession(f.ctx, f.db, 9999)
	requireKind(t, err, KindNotFound)
}

func TestRecordResultOncePerAsset(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")
	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)

	r, err := RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: true})
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.Nil(t, r.ActualLocationID)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: false})
	assert.ErrorIs(t, err, ErrDuplicateResult)

	// Another session may check the same asset.
	s2, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)
	_, err = RecordResult(f.ctx, f.db, s2.ID, model.NewResult{AssetID: a.ID, Found: true})
	require.NoError(t, err)
}

func TestConcurrentResultsForSamePair(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")
	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: true})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateResult)
	}
	assert.Equal(t, 1, succeeded)

	var rows int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM inventory_results WHERE session_id = ?`, s.ID,
	).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestRecordResultValidation(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")
	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)

	_, err = RecordResult(f.ctx, f.db, 9999, model.NewResult{AssetID: a.ID})
	requireKind(t, err, KindNotFound)
	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: 9999})
	requireKind(t, err, KindNotFound)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{
		AssetID:            a.ID,
		ActualLocationType: model.LocationEmployee,
	})
	requireKind(t, err, KindInvalidInput)

	missing := int64(9999)
	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{
		AssetID:            a.ID,
		ActualLocationType: model.LocationEmployee,
		ActualLocationID:   &missing,
	})
	requireKind(t, err, KindNotFound)

	user, err := CreateUser(f.ctx, f.db, "auditor", "hash", model.RoleUser)
	require.NoError(t, err)
	r, err := RecordResult(f.ctx, f.db, s.ID, model.NewResult{
		AssetID:            a.ID,
		Found:              true,
		ActualLocationType: model.LocationEmployee,
		ActualLocationID:   &f.bob.ID,
		ConfirmedBy:        &user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LocationEmployee, r.ActualLocationType)
	require.NotNil(t, r.ActualLocationID)
	assert.Equal(t, f.bob.ID, *r.ActualLocationID)
	require.NotNil(t, r.ConfirmedBy)
	assert.Equal(t, user.ID, *r.ConfirmedBy)
}

func TestCheckedItems(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")
	b := f.newAsset(t, "01", "M-2")
	s, err := CreateSession(f.ctx, f.db, "", nil)
	require.NoError(t, err)

	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: true})
	require.NoError(t, err)
	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: b.ID, Found: false})
	require.NoError(t, err)

	checked, err := CheckedItems(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	require.Len(t, checked, 2)
	require.NotNil(t, checked[0].Asset)
	assert.Equal(t, b.InventoryNumber, checked[0].Asset.InventoryNumber)
	assert.False(t, checked[0].Found)
	assert.Equal(t, a.InventoryNumber, checked[1].Asset.InventoryNumber)

	remaining, err := RemainingAssets(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = CheckedItems(f.ctx, f.db, 9999)
	requireKind(t, err, KindNotFound)
}

func TestDeleteSessionCascades(t *testing.T) {
	f := newFixture(t)
	a := f.newAsset(t, "01", "M-1")
	s, err := CreateSession(f.ctx, f.db, "", []string{"01"})
	require.NoError(t, err)
	_, err = RecordResult(f.ctx, f.db, s.ID, model.NewResult{AssetID: a.ID, Found: true})
	require.NoError(t, err)

	require.NoError(t, DeleteSession(f.ctx, f.db, s.ID))
	requireKind(t, DeleteSession(f.ctx, f.db, s.ID), KindNotFound)

	got, err := GetSession(f.ctx, f.db, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var scope, results int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM inventory_session_device_types`).Scan(&scope))
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM inventory_results`).Scan(&results))
	assert.Zero(t, scope)
	assert.Zero(t, results)

	// The device type is free again.
	require.NoError(t, DeleteAsset(f.ctx, f.db, a.ID))
	require.NoError(t, DeleteDeviceType(f.ctx, f.db, "01"))
}
