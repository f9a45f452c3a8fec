package service

import (
	"context"
	"testing"
	"time"

	"campwise-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitTransferRequest_Validation(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "I-101", domain.GenderRestrictionAny)
	p1, _ := f.seedResident(source, srcRoom, "1", "male")

	base := SubmitTransferRequestInput{
		SourceCampID:          source,
		TargetCampID:          target,
		PersonIDs:             []string{p1},
		Reason:                domain.TransferReasonRegular,
		ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		ScheduledDispatchTime: "14:30",
		RequestedBy:           "coordinator",
		AsOf:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name   string
		mutate func(*SubmitTransferRequestInput)
	}{
		{"same source and target", func(in *SubmitTransferRequestInput) { in.TargetCampID = in.SourceCampID }},
		{"empty persons", func(in *SubmitTransferRequestInput) { in.PersonIDs = nil }},
		{"unknown reason", func(in *SubmitTransferRequestInput) { in.Reason = "vacation" }},
		{"missing requested_by", func(in *SubmitTransferRequestInput) { in.RequestedBy = "" }},
		{"missing dispatch time", func(in *SubmitTransferRequestInput) { in.ScheduledDispatchTime = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.PersonIDs = append([]string{}, base.PersonIDs...)
			tt.mutate(&in)
			_, err := f.transferSvc.SubmitTransferRequest(ctx, in)
			assert.True(t, IsKind(err, KindValidation), "expected validation error, got %v", err)
		})
	}

	// 基准输入本身可提交
	_, err := f.transferSvc.SubmitTransferRequest(ctx, base)
	assert.NoError(t, err)
}

func TestSubmitTransferRequest_RejectsDoubleEnrollment(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	target2 := f.catalog.SeedCamp("Westside Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "I-101", domain.GenderRestrictionAny)
	p1, _ := f.seedResident(source, srcRoom, "1", "male")

	first := f.submit(t, source, target, []string{p1}, domain.TransferReasonRegular)

	_, err := f.transferSvc.SubmitTransferRequest(ctx, SubmitTransferRequestInput{
		SourceCampID:          source,
		TargetCampID:          target2,
		PersonIDs:             []string{p1},
		Reason:                domain.TransferReasonRegular,
		ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		ScheduledDispatchTime: "14:30",
		RequestedBy:           "coordinator",
		AsOf:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeIneligiblePerson))
	assert.Contains(t, err.Error(), p1)

	// 原申请取消后可重新提交
	_, err = f.transferSvc.CancelRequest(ctx, CancelRequestInput{RequestID: first, CancelledBy: "warden"})
	require.NoError(t, err)
	_ = f.submit(t, source, target2, []string{p1}, domain.TransferReasonRegular)
}

func TestSubmitTransferRequest_RejectsBedlessBeforeInduction(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)

	// 尚未完成首次入住：induction 未完成且无床位
	newcomer := f.persons.SeedPerson(domain.Person{
		Kind:     domain.PersonKindTechnician,
		FullName: "Newcomer",
		Gender:   "male",
		Status:   domain.PersonStatusActive,
	})

	_, err := f.transferSvc.SubmitTransferRequest(ctx, SubmitTransferRequestInput{
		SourceCampID:          source,
		TargetCampID:          target,
		PersonIDs:             []string{newcomer},
		Reason:                domain.TransferReasonRegular,
		ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		ScheduledDispatchTime: "14:30",
		RequestedBy:           "coordinator",
		AsOf:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.True(t, IsCode(err, CodeIneligiblePerson))
}

func TestSubmitTransferRequest_ExitCaseEligibility(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	target := f.catalog.SeedCamp("Gateway Exit", domain.CampTypeExit)
	srcRoom := f.catalog.SeedRoom(source, "R-101", domain.GenderRestrictionAny)

	active, _ := f.seedResident(source, srcRoom, "1", "male")
	terminated, _ := f.seedResident(source, srcRoom, "2", "male")
	hrApproved, _ := f.seedResident(source, srcRoom, "3", "male")

	term := domain.PersonStatusTerminated
	require.NoError(t, f.persons.UpdatePerson(ctx, terminated, personStatusUpdate(term)))
	f.exit[hrApproved] = true

	submit := func(personID string) error {
		_, err := f.transferSvc.SubmitTransferRequest(ctx, SubmitTransferRequestInput{
			SourceCampID:          source,
			TargetCampID:          target,
			PersonIDs:             []string{personID},
			Reason:                domain.TransferReasonExitCase,
			ScheduledDispatchDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			ScheduledDispatchTime: "14:30",
			RequestedBy:           "coordinator",
			AsOf:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		return err
	}

	// 在职且 HR 不放行 → 拒绝
	assert.True(t, IsCode(submit(active), CodeIneligiblePerson))
	// terminated 直接放行
	assert.NoError(t, submit(terminated))
	// HR 判定放行
	assert.NoError(t, submit(hrApproved))
}

func TestSubmitTransferRequest_ScheduleWindowEnforced(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	// 常规→常规受调度窗口约束（内置默认：周二/周日 14:30–18:30）
	source := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	target := f.catalog.SeedCamp("Westside Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "R-101", domain.GenderRestrictionAny)
	p1, _ := f.seedResident(source, srcRoom, "1", "male")

	submit := func(date time.Time, slot string) error {
		_, err := f.transferSvc.SubmitTransferRequest(ctx, SubmitTransferRequestInput{
			SourceCampID:          source,
			TargetCampID:          target,
			PersonIDs:             []string{p1},
			Reason:                domain.TransferReasonRegular,
			ScheduledDispatchDate: date,
			ScheduledDispatchTime: slot,
			RequestedBy:           "coordinator",
			AsOf:                  date,
		})
		return err
	}

	// 周一被拒，错误信息指名允许的周几
	err := submit(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "14:30")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeScheduleWindow))
	assert.Contains(t, err.Error(), "Tuesday")
	assert.Contains(t, err.Error(), "Sunday")

	// 周二非整点时段被拒
	err = submit(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), "14:45")
	assert.True(t, IsCode(err, CodeScheduleWindow))

	// 周二 14:30 放行
	assert.NoError(t, submit(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), "14:30"))
}

func TestApproveAndDispatchFlow(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "I-101", domain.GenderRestrictionAny)
	tgtRoom := f.catalog.SeedRoom(target, "R-101", domain.GenderRestrictionAny)

	p1, _ := f.seedResident(source, srcRoom, "1", "male")
	p2, _ := f.seedResident(source, srcRoom, "2", "male")
	f.catalog.SeedBed(tgtRoom, "1")
	f.catalog.SeedBed(tgtRoom, "2")

	requestID := f.submit(t, source, target, []string{p1, p2}, domain.TransferReasonRegular)

	// 未分配不可审批
	_, err := f.transferSvc.ApproveDispatch(ctx, ApproveDispatchInput{RequestID: requestID, ApprovedBy: "chief"})
	assert.True(t, IsCode(err, CodeInvalidStateTransition))

	_, err = f.allocSvc.AllocateBeds(ctx, AllocateBedsInput{RequestID: requestID})
	require.NoError(t, err)

	resp, err := f.transferSvc.ApproveDispatch(ctx, ApproveDispatchInput{RequestID: requestID, ApprovedBy: "chief"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusApprovedForDispatch, resp.Status)

	resp, err = f.transferSvc.MarkDispatched(ctx, MarkDispatchedInput{RequestID: requestID, DispatchedBy: "gate"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusTechsDispatched, resp.Status)

	// 派送后人员进入 pending_arrival
	for _, id := range []string{p1, p2} {
		person, err := f.persons.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.PersonStatusPendingArrival, person.Status)
	}

	// 重复派送被拒
	_, err = f.transferSvc.MarkDispatched(ctx, MarkDispatchedInput{RequestID: requestID, DispatchedBy: "gate"})
	assert.True(t, IsCode(err, CodeInvalidStateTransition))
}

func TestCancelRequest_ReleasesBedsAndRestoresPersons(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "I-101", domain.GenderRestrictionAny)
	tgtRoom := f.catalog.SeedRoom(target, "R-101", domain.GenderRestrictionAny)

	p1, _ := f.seedResident(source, srcRoom, "1", "male")
	tgtBed := f.catalog.SeedBed(tgtRoom, "1")

	requestID := f.submit(t, source, target, []string{p1}, domain.TransferReasonRegular)
	_, err := f.allocSvc.AllocateBeds(ctx, AllocateBedsInput{RequestID: requestID})
	require.NoError(t, err)
	_, err = f.transferSvc.ApproveDispatch(ctx, ApproveDispatchInput{RequestID: requestID})
	require.NoError(t, err)
	_, err = f.transferSvc.MarkDispatched(ctx, MarkDispatchedInput{RequestID: requestID})
	require.NoError(t, err)

	resp, err := f.transferSvc.CancelRequest(ctx, CancelRequestInput{RequestID: requestID, CancelledBy: "warden"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCancelled, resp.Status)

	// 预留床释放回 vacant；人员恢复 active
	f.mustBedStatus(t, tgtBed, domain.BedStatusVacant, "")
	person, err := f.persons.GetPerson(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, domain.PersonStatusActive, person.Status)

	// 终态不可再取消
	_, err = f.transferSvc.CancelRequest(ctx, CancelRequestInput{RequestID: requestID})
	assert.True(t, IsCode(err, CodeInvalidStateTransition))
}

func TestCancelRequest_KeepsTerminatedStatusForExitCase(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	target := f.catalog.SeedCamp("Southgate Exit", domain.CampTypeExit)
	srcRoom := f.catalog.SeedRoom(source, "R-101", domain.GenderRestrictionAny)
	tgtRoom := f.catalog.SeedRoom(target, "E-101", domain.GenderRestrictionAny)

	p1, srcBed := f.seedResident(source, srcRoom, "1", "male")
	require.NoError(t, f.persons.UpdatePerson(ctx, p1, personStatusUpdate(domain.PersonStatusTerminated)))
	tgtBed := f.catalog.SeedBed(tgtRoom, "1")

	requestID := f.submit(t, source, target, []string{p1}, domain.TransferReasonExitCase)
	_, err := f.allocSvc.AllocateBeds(ctx, AllocateBedsInput{RequestID: requestID})
	require.NoError(t, err)
	_, err = f.transferSvc.ApproveDispatch(ctx, ApproveDispatchInput{RequestID: requestID})
	require.NoError(t, err)
	_, err = f.transferSvc.MarkDispatched(ctx, MarkDispatchedInput{RequestID: requestID})
	require.NoError(t, err)

	// 派送前状态快照到申请上，人员本身已置 pending_arrival
	req := f.mustRequestStatus(t, requestID, domain.TransferStatusTechsDispatched)
	assert.Equal(t, domain.PersonStatusTerminated, req.PreDispatchStatuses[p1])
	person, err := f.persons.GetPerson(ctx, p1)
	require.NoError(t, err)
	require.Equal(t, domain.PersonStatusPendingArrival, person.Status)

	_, err = f.transferSvc.CancelRequest(ctx, CancelRequestInput{RequestID: requestID, CancelledBy: "warden"})
	require.NoError(t, err)

	// 取消恢复的是派送前的 terminated，而不是一律 active
	person, err = f.persons.GetPerson(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, domain.PersonStatusTerminated, person.Status)
	f.mustBedStatus(t, tgtBed, domain.BedStatusVacant, "")
	f.mustBedStatus(t, srcBed, domain.BedStatusOccupied, p1)

	// terminated 保留后重新提交 exit_case 仍走本地资格判定
	f.submit(t, source, target, []string{p1}, domain.TransferReasonExitCase)
}

func TestListTransferRequests_Filters(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	source := f.catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	target := f.catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)
	srcRoom := f.catalog.SeedRoom(source, "I-101", domain.GenderRestrictionAny)
	p1, _ := f.seedResident(source, srcRoom, "1", "male")
	p2, _ := f.seedResident(source, srcRoom, "2", "male")

	r1 := f.submit(t, source, target, []string{p1}, domain.TransferReasonRegular)
	_ = f.submit(t, source, target, []string{p2}, domain.TransferReasonRegular)

	all, err := f.transferSvc.ListTransferRequests(ctx, ListTransfersInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	byPerson, err := f.transferSvc.ListTransferRequests(ctx, ListTransfersInput{
		Filters: listFilterPerson(p1), Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, byPerson.Items, 1)
	assert.Equal(t, r1, byPerson.Items[0].RequestID)
}
