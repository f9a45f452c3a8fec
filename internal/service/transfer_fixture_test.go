package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// transferFixture 内存仓库 + 三个服务的完整测试环境
type transferFixture struct {
	catalog   *repository.MemoryCatalogRepo
	persons   *repository.MemoryPersonsRepo
	transfers *repository.MemoryTransfersRepo
	logs      *repository.MemoryTransferLogsRepo
	policies  *repository.MemorySchedulePoliciesRepo
	exit      StaticExitEligibility
	locks     *LockRegistry

	transferSvc TransferService
	allocSvc    AllocationService
	arrivalSvc  ArrivalService
}

func newTransferFixture() *transferFixture {
	f := &transferFixture{
		catalog:   repository.NewMemoryCatalogRepo(),
		persons:   repository.NewMemoryPersonsRepo(),
		transfers: repository.NewMemoryTransfersRepo(),
		logs:      repository.NewMemoryTransferLogsRepo(),
		policies:  repository.NewMemorySchedulePoliciesRepo(),
		exit:      StaticExitEligibility{},
		locks:     NewLockRegistry(),
	}
	logger := zap.NewNop()
	f.transferSvc = NewTransferService(f.catalog, f.persons, f.catalog, f.transfers, f.policies, f.exit, f.locks, logger)
	f.allocSvc = NewAllocationService(f.catalog, f.persons, f.catalog, f.transfers, f.exit, f.locks, logger)
	f.arrivalSvc = NewArrivalService(f.catalog, f.persons, f.catalog, f.transfers, f.logs, f.locks, logger)
	return f
}

// seedResident 造一名已完成首次入住的人员（占用一张源营地床位）
func (f *transferFixture) seedResident(campID, roomID, bedNumber, gender string) (personID, bedID string) {
	personID = f.persons.SeedPerson(domain.Person{
		Kind:               domain.PersonKindTechnician,
		FullName:           "Tech " + bedNumber,
		Gender:             gender,
		Status:             domain.PersonStatusActive,
		InductionCompleted: true,
	})
	bedID = f.catalog.SeedOccupiedBed(roomID, bedNumber, personID)
	_ = f.persons.UpdatePerson(context.Background(), personID, repository.PersonUpdate{
		CampID: &campID,
		BedID:  &bedID,
	})
	return personID, bedID
}

// submit 提交一笔入营→常规的申请（flexible 路线，不触发调度窗口）
func (f *transferFixture) submit(t *testing.T, sourceCampID, targetCampID string, personIDs []string, reason string) string {
	t.Helper()
	resp, err := f.transferSvc.SubmitTransferRequest(context.Background(), SubmitTransferRequestInput{
		SourceCampID:          sourceCampID,
		TargetCampID:          targetCampID,
		PersonIDs:             personIDs,
		Reason:                reason,
		ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), // Tuesday
		ScheduledDispatchTime: "14:30",
		RequestedBy:           "coordinator",
		AsOf:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusPendingAllocation, resp.Status)
	return resp.RequestID
}

// mustBedStatus 断言床位状态与占用人
func (f *transferFixture) mustBedStatus(t *testing.T, bedID, status string, occupantID string) {
	t.Helper()
	bed, err := f.catalog.GetBed(context.Background(), bedID)
	require.NoError(t, err)
	require.Equal(t, status, bed.Status, "bed %s", bedID)
	if occupantID == "" {
		require.False(t, bed.OccupantID.Valid, "bed %s should have no occupant", bedID)
	} else {
		require.Equal(t, sql.NullString{String: occupantID, Valid: true}, bed.OccupantID)
	}
}

func personStatusUpdate(status string) repository.PersonUpdate {
	return repository.PersonUpdate{Status: &status}
}

func listFilterPerson(personID string) repository.TransferFilters {
	return repository.TransferFilters{PersonID: personID}
}

func (f *transferFixture) mustRequestStatus(t *testing.T, requestID, status string) *domain.TransferRequest {
	t.Helper()
	req, err := f.transfers.GetTransferRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Equal(t, status, req.Status)
	return req
}
