// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"campwise-data/internal/config"
	"campwise-data/internal/database"
	"campwise-data/internal/domain"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// 获取测试数据库连接
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "campwise"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}

	return db
}

// 创建测试营地 + 两间房 + 三张床
func createTestCatalog(t *testing.T, db *sql.DB) (campID string, bedIDs []string) {
	campID = "00000000-0000-0000-0000-000000000901"
	roomA := "00000000-0000-0000-0000-000000000911"
	roomB := "00000000-0000-0000-0000-000000000912"
	bedIDs = []string{
		"00000000-0000-0000-0000-000000000921",
		"00000000-0000-0000-0000-000000000922",
		"00000000-0000-0000-0000-000000000923",
	}

	_, err := db.Exec(
		`INSERT INTO camps (camp_id, camp_name, camp_type, city, capacity)
		 VALUES ($1, 'Test Regular Camp', 'regular_camp', 'Testville', 3)
		 ON CONFLICT (camp_id) DO UPDATE SET camp_name = EXCLUDED.camp_name`,
		campID,
	)
	if err != nil {
		t.Fatalf("Failed to create test camp: %v", err)
	}

	for roomID, name := range map[string]string{roomA: "R-101", roomB: "R-102"} {
		_, err = db.Exec(
			`INSERT INTO rooms (room_id, camp_id, floor, room_name, gender_restriction)
			 VALUES ($1, $2, '1F', $3, 'any')
			 ON CONFLICT (room_id) DO UPDATE SET room_name = EXCLUDED.room_name`,
			roomID, campID, name,
		)
		if err != nil {
			t.Fatalf("Failed to create test room: %v", err)
		}
	}

	// R-101 床 1、2；R-102 床 1
	for i, bedID := range bedIDs {
		roomID, number := roomA, strconv.Itoa(i+1)
		if i == 2 {
			roomID, number = roomB, "1"
		}
		_, err = db.Exec(
			`INSERT INTO beds (bed_id, room_id, bed_number, status)
			 VALUES ($1, $2, $3, 'vacant')
			 ON CONFLICT (bed_id) DO UPDATE SET status = 'vacant', occupant_id = NULL`,
			bedID, roomID, number,
		)
		if err != nil {
			t.Fatalf("Failed to create test bed: %v", err)
		}
	}
	return campID, bedIDs
}

// 清理测试数据（删除顺序：beds -> rooms -> camps）
func cleanupTestCatalog(t *testing.T, db *sql.DB, campID string) {
	db.Exec(`DELETE FROM beds WHERE room_id IN (SELECT room_id FROM rooms WHERE camp_id = $1)`, campID)
	db.Exec(`DELETE FROM rooms WHERE camp_id = $1`, campID)
	db.Exec(`DELETE FROM camps WHERE camp_id = $1`, campID)
}

func TestPostgresCatalogRepository_GetCamp(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	campID, _ := createTestCatalog(t, db)
	defer cleanupTestCatalog(t, db, campID)

	repo := NewPostgresCatalogRepository(db)
	ctx := context.Background()

	camp, err := repo.GetCamp(ctx, campID)
	if err != nil {
		t.Fatalf("GetCamp failed: %v", err)
	}
	if camp.CampType != domain.CampTypeRegular {
		t.Errorf("Expected camp_type %s, got %s", domain.CampTypeRegular, camp.CampType)
	}
	if camp.CampName != "Test Regular Camp" {
		t.Errorf("Expected camp_name 'Test Regular Camp', got %s", camp.CampName)
	}

	if _, err := repo.GetCamp(ctx, "00000000-0000-0000-0000-000000000000"); err != ErrCampNotFound {
		t.Errorf("Expected ErrCampNotFound, got %v", err)
	}
}

func TestPostgresCatalogRepository_ListVacantBedsOrdering(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	campID, bedIDs := createTestCatalog(t, db)
	defer cleanupTestCatalog(t, db, campID)

	repo := NewPostgresCatalogRepository(db)
	ctx := context.Background()

	beds, err := repo.ListVacantBedsByCamp(ctx, campID)
	if err != nil {
		t.Fatalf("ListVacantBedsByCamp failed: %v", err)
	}
	if len(beds) != 3 {
		t.Fatalf("Expected 3 vacant beds, got %d", len(beds))
	}
	// 排序：room_name 再 bed_number（R-101/1, R-101/2, R-102/1）
	want := []string{bedIDs[0], bedIDs[1], bedIDs[2]}
	for i, b := range beds {
		if b.Bed.BedID != want[i] {
			t.Errorf("Bed %d: expected %s, got %s", i, want[i], b.Bed.BedID)
		}
	}
}

func TestPostgresCatalogRepository_CompareAndSetStatus(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	campID, bedIDs := createTestCatalog(t, db)
	defer cleanupTestCatalog(t, db, campID)

	repo := NewPostgresCatalogRepository(db)
	ctx := context.Background()
	bedID := bedIDs[0]
	occupant := "00000000-0000-0000-0000-000000000951"

	// vacant -> reserved
	if err := repo.CompareAndSetStatus(ctx, bedID, domain.BedStatusVacant, domain.BedStatusReserved, nil); err != nil {
		t.Fatalf("CAS vacant->reserved failed: %v", err)
	}

	// 前置状态不匹配
	if err := repo.CompareAndSetStatus(ctx, bedID, domain.BedStatusVacant, domain.BedStatusOccupied, &occupant); err != ErrBedStatusConflict {
		t.Errorf("Expected ErrBedStatusConflict, got %v", err)
	}

	// reserved -> occupied 写入占用人
	if err := repo.CompareAndSetStatus(ctx, bedID, domain.BedStatusReserved, domain.BedStatusOccupied, &occupant); err != nil {
		t.Fatalf("CAS reserved->occupied failed: %v", err)
	}
	bed, err := repo.GetBed(ctx, bedID)
	if err != nil {
		t.Fatalf("GetBed failed: %v", err)
	}
	if bed.Status != domain.BedStatusOccupied {
		t.Errorf("Expected status occupied, got %s", bed.Status)
	}
	if !bed.OccupantID.Valid || bed.OccupantID.String != occupant {
		t.Errorf("Expected occupant %s, got %+v", occupant, bed.OccupantID)
	}

	// 床位不存在
	if err := repo.CompareAndSetStatus(ctx, "00000000-0000-0000-0000-000000000000", domain.BedStatusVacant, domain.BedStatusReserved, nil); err != ErrBedNotFound {
		t.Errorf("Expected ErrBedNotFound, got %v", err)
	}
}
