// +build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"campwise-data/internal/domain"
)

// 创建转移申请测试用的两个营地
func createTestCampsForTransfers(t *testing.T, db *sql.DB) (sourceID, targetID string) {
	sourceID = "00000000-0000-0000-0000-000000000902"
	targetID = "00000000-0000-0000-0000-000000000903"

	for campID, name := range map[string]string{
		sourceID: "Test Source Camp",
		targetID: "Test Target Camp",
	} {
		_, err := db.Exec(
			`INSERT INTO camps (camp_id, camp_name, camp_type, city, capacity)
			 VALUES ($1, $2, 'regular_camp', 'Testville', 10)
			 ON CONFLICT (camp_id) DO UPDATE SET camp_name = EXCLUDED.camp_name`,
			campID, name,
		)
		if err != nil {
			t.Fatalf("Failed to create test camp: %v", err)
		}
	}
	return sourceID, targetID
}

func cleanupTestTransfers(t *testing.T, db *sql.DB, sourceID, targetID string) {
	db.Exec(`DELETE FROM transfer_requests WHERE source_camp_id = $1`, sourceID)
	db.Exec(`DELETE FROM camps WHERE camp_id IN ($1, $2)`, sourceID, targetID)
}

func TestPostgresTransfersRepository_CreateGetUpdate(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	sourceID, targetID := createTestCampsForTransfers(t, db)
	defer cleanupTestTransfers(t, db, sourceID, targetID)

	repo := NewPostgresTransfersRepository(db)
	ctx := context.Background()

	personA := "00000000-0000-0000-0000-000000000941"
	personB := "00000000-0000-0000-0000-000000000942"

	requestID, err := repo.CreateTransferRequest(ctx, &domain.TransferRequest{
		SourceCampID:          sourceID,
		TargetCampID:          targetID,
		PersonIDs:             []string{personA, personB},
		Reason:                domain.TransferReasonRegular,
		ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		ScheduledDispatchTime: "14:30",
		Status:                domain.TransferStatusPendingAllocation,
		RequestedBy:           "integration-test",
	})
	if err != nil {
		t.Fatalf("CreateTransferRequest failed: %v", err)
	}

	req, err := repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		t.Fatalf("GetTransferRequest failed: %v", err)
	}
	if len(req.PersonIDs) != 2 || req.PersonIDs[0] != personA {
		t.Errorf("Unexpected person_ids: %v", req.PersonIDs)
	}
	if req.Status != domain.TransferStatusPendingAllocation {
		t.Errorf("Expected status pending_allocation, got %s", req.Status)
	}
	if len(req.AllocatedBeds) != 0 || len(req.ArrivedPersonIDs) != 0 {
		t.Errorf("Expected empty allocation state, got %v / %v", req.AllocatedBeds, req.ArrivedPersonIDs)
	}

	// 冻结分配结果 + 状态推进
	status := domain.TransferStatusBedsAllocated
	err = repo.UpdateTransferRequest(ctx, requestID, TransferRequestUpdate{
		Status: &status,
		AllocatedBeds: map[string]domain.BedAssignment{
			personA: {BedID: "00000000-0000-0000-0000-000000000921", IsTemporary: false},
			personB: {BedID: "00000000-0000-0000-0000-000000000922", IsTemporary: true},
		},
	})
	if err != nil {
		t.Fatalf("UpdateTransferRequest failed: %v", err)
	}

	req, err = repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		t.Fatalf("GetTransferRequest after update failed: %v", err)
	}
	if req.Status != domain.TransferStatusBedsAllocated {
		t.Errorf("Expected status beds_allocated, got %s", req.Status)
	}
	if !req.AllocatedBeds[personB].IsTemporary {
		t.Errorf("Expected is_temporary for %s, got %+v", personB, req.AllocatedBeds[personB])
	}

	if _, err := repo.GetTransferRequest(ctx, "00000000-0000-0000-0000-000000000000"); err != ErrRequestNotFound {
		t.Errorf("Expected ErrRequestNotFound, got %v", err)
	}
}

func TestPostgresTransfersRepository_PersonContainmentQueries(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	sourceID, targetID := createTestCampsForTransfers(t, db)
	defer cleanupTestTransfers(t, db, sourceID, targetID)

	repo := NewPostgresTransfersRepository(db)
	ctx := context.Background()

	personA := "00000000-0000-0000-0000-000000000943"
	personB := "00000000-0000-0000-0000-000000000944"

	mkRequest := func(personID, status string) string {
		id, err := repo.CreateTransferRequest(ctx, &domain.TransferRequest{
			SourceCampID:          sourceID,
			TargetCampID:          targetID,
			PersonIDs:             []string{personID},
			Reason:                domain.TransferReasonRegular,
			ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			ScheduledDispatchTime: "15:00",
			Status:                status,
			RequestedBy:           "integration-test",
		})
		if err != nil {
			t.Fatalf("CreateTransferRequest failed: %v", err)
		}
		return id
	}

	openID := mkRequest(personA, domain.TransferStatusPendingAllocation)
	mkRequest(personA, domain.TransferStatusCancelled)
	mkRequest(personB, domain.TransferStatusPendingAllocation)

	// GIN 包含查询：personA 的未终态申请只剩一条
	active, err := repo.ListActiveByPerson(ctx, personA)
	if err != nil {
		t.Fatalf("ListActiveByPerson failed: %v", err)
	}
	if len(active) != 1 || active[0].RequestID != openID {
		t.Errorf("Expected single active request %s, got %+v", openID, active)
	}

	items, total, err := repo.ListTransferRequests(ctx, TransferFilters{PersonID: personA}, 1, 10)
	if err != nil {
		t.Fatalf("ListTransferRequests failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("Expected 2 requests for %s, got total=%d len=%d", personA, total, len(items))
	}

	items, total, err = repo.ListTransferRequests(ctx, TransferFilters{
		SourceCampID: sourceID,
		Status:       domain.TransferStatusPendingAllocation,
	}, 1, 10)
	if err != nil {
		t.Fatalf("ListTransferRequests by status failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 pending requests, got %d", total)
	}
}
