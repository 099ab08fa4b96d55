package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/testutil"
	"pds_backend/internal/validator"
	"pds_backend/pkg/apperrors"
)

func csvFile(name, content string) *services.FileInput {
	return &services.FileInput{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "text/csv",
		Content:     strings.NewReader(content),
	}
}

func newUserImportService(t *testing.T) (*services.UserImportServiceImpl, string) {
	t.Helper()
	store, dir := testutil.NewTestStorage(t)
	svc := services.NewUserImportService(
		repositories.NewUserRepository(),
		repositories.NewRoleRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
		store,
		validator.New(),
	)
	return svc, dir
}

func TestImportUsers_BestEffort(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, dir := newUserImportService(t)
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	before := testutil.CountRows(t, db, &models.User{})

	content := "First Name,Last Name,Email,Nat_ID,Phone Number,Department,Password,Active\n" +
		"Rudo,Chari,rudo@pds.co.zw,63-1000001A01,+263772000001,111,Secret#1,TRUE\n" +
		"Tafadzwa,Ncube,taf@pds.co.zw,63-1000002A01,+263772000002,111,Secret#1,\n" +
		"Chipo,Dube,chipo@pds.co.zw,63-1000003A01,+263772000003,114,Secret#1,false\n" +
		"Farai,Sibanda,farai@pds.co.zw,63-1000004A01,+263772000004,114,Secret#1,\n" +
		"Nyasha,Banda,nyasha@pds.co.zw,63-1000005A01,+263772000005,111,Secret#1,\n" +
		"Kuda,,kuda@pds.co.zw,,+263772000006,111,Secret#1,\n"

	result, err := svc.ImportUsers(context.Background(), db, services.Actor{UserID: admin.ID, Email: admin.Email}, csvFile("users.csv", content))
	require.NoError(t, err)

	assert.Equal(t, 6, result.Summary.TotalRecords)
	assert.Equal(t, 5, result.Summary.SuccessCount)
	assert.Equal(t, 1, result.Summary.ErrorCount)
	assert.Len(t, result.SuccessRecords, 5)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 6, result.Errors[0].Row)
	assert.Equal(t, "Missing required fields: last_name, nat_id", result.Errors[0].Error)
	assert.Equal(t, "kuda@pds.co.zw", result.Errors[0].Data["email"])

	assert.Equal(t, before+5, testutil.CountRows(t, db, &models.User{}))

	chipo, err := repositories.NewUserRepository().FindByEmail(db, "chipo@pds.co.zw")
	require.NoError(t, err)
	assert.False(t, chipo.IsActive)
	assert.True(t, chipo.IsVerified)
	assert.Equal(t, models.RoleUser, chipo.RoleName())

	assert.Zero(t, testutil.CountFiles(t, dir), "staged file must be removed")

	var entry models.AuditEntry
	require.NoError(t, db.Where("action = ?", models.AuditUserImport).First(&entry).Error)
	assert.Contains(t, entry.Description, "5 succeeded, 1 failed")
}

func TestImportUsers_DuplicatesReportedPerRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _ := newUserImportService(t)
	testutil.CreateUser(t, db, testutil.UserOpts{Email: "exists@pds.co.zw", NatID: "63-9999999Z99"})

	content := "first_name,last_name,email,nat_id,phone_number,department,password\n" +
		"A,One,exists@pds.co.zw,63-0000001A01,+263773000001,111,Secret#1\n" +
		"B,Two,b@pds.co.zw,63-9999999Z99,+263773000002,111,Secret#1\n" +
		"C,Three,c@pds.co.zw,63-0000003A01,+263773000003,111,Secret#1\n" +
		"D,Four,c@pds.co.zw,63-0000004A01,+263773000004,111,Secret#1\n" +
		"E,Five,not-an-email,63-0000005A01,+263773000005,111,Secret#1\n"

	result, err := svc.ImportUsers(context.Background(), db, services.Actor{}, csvFile("users.csv", content))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.SuccessCount)
	assert.Equal(t, 4, result.Summary.ErrorCount)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "User with this email already exists", result.Errors[0].Error)
	assert.Equal(t, "User with this national ID already exists", result.Errors[1].Error)
	assert.Equal(t, 4, result.Errors[2].Row)
	assert.Equal(t, "User with this email already exists", result.Errors[2].Error)
	assert.Contains(t, result.Errors[3].Error, "email")
}

func TestImportUsers_RejectsUnsupportedAndEmptyFiles(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, dir := newUserImportService(t)

	_, err := svc.ImportUsers(context.Background(), db, services.Actor{}, csvFile("users.txt", "a,b\n1,2\n"))
	assertAppError(t, err, apperrors.CodeValidationFailed)

	_, err = svc.ImportUsers(context.Background(), db, services.Actor{}, csvFile("users.csv", "first_name,last_name\n"))
	assertAppError(t, err, apperrors.CodeValidationFailed)
	assert.Zero(t, testutil.CountFiles(t, dir))
}

func newPayslipService(t *testing.T) *services.PayslipServiceImpl {
	t.Helper()
	store, _ := testutil.NewTestStorage(t)
	return services.NewPayslipService(
		repositories.NewPayslipRepository(),
		repositories.NewUserRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
		store,
	)
}

func TestImportPayslips_ResolvesByNatIDThenPhone(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newPayslipService(t)
	hr := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleHR})
	byNat := testutil.CreateUser(t, db, testutil.UserOpts{NatID: "63-2000001A01"})
	byPhone := testutil.CreateUser(t, db, testutil.UserOpts{Phone: "+263774000002"})

	content := "Nat_ID,Ecocash Number,Period,Basic Pay,Commission,Backpay,Grosspay,Tax 30%,Netpay\n" +
		"63-2000001A01,,2024-05,1000.00,250.50,0,1250.50,375.15,875.35\n" +
		",+263774000002,2024-05,900,0,0,900,270,630\n" +
		"63-0000000X00,,2024-05,1,1,1,1,1,1\n" +
		"63-2000001A01,,2024-05,1,1,1,1,1,1\n" +
		"63-2000001A01,,2024-06,abc,1,1,1,1,1\n" +
		",,2024-06,1,1,1,1,1,1\n"

	result, err := svc.ImportPayslips(context.Background(), db, services.Actor{UserID: hr.ID, Role: models.RoleHR}, csvFile("payslips.csv", content))
	require.NoError(t, err)

	assert.Equal(t, 6, result.Summary.TotalRecords)
	assert.Equal(t, 2, result.Summary.SuccessCount)
	assert.Equal(t, 4, result.Summary.ErrorCount)
	assert.EqualValues(t, 2, testutil.CountRows(t, db, &models.Payslip{}))

	require.Len(t, result.Errors, 4)
	assert.Equal(t, "User with Nat_ID 63-0000000X00 not found", result.Errors[0].Error)
	assert.Equal(t, "Payslip for period 2024-05 already exists for this user", result.Errors[1].Error)
	assert.Equal(t, "Invalid amount for basic_pay: 'abc'", result.Errors[2].Error)
	assert.Equal(t, "Missing required fields: nat_id or ecocash_number", result.Errors[3].Error)

	natSlips, err := svc.ListUserPayslips(context.Background(), db, services.Actor{UserID: byNat.ID, Role: models.RoleUser}, byNat.ID)
	require.NoError(t, err)
	require.Len(t, natSlips, 1)
	assert.True(t, decimal.RequireFromString("875.35").Equal(natSlips[0].Netpay))
	assert.True(t, decimal.RequireFromString("375.15").Equal(natSlips[0].Tax30Percent))

	phoneSlips, err := svc.ListUserPayslips(context.Background(), db, services.Actor{Role: models.RoleHR}, byPhone.ID)
	require.NoError(t, err)
	assert.Len(t, phoneSlips, 1)
}

func TestListUserPayslips_UserSeesOnlyOwn(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newPayslipService(t)
	alice := testutil.CreateUser(t, db, testutil.UserOpts{})
	bob := testutil.CreateUser(t, db, testutil.UserOpts{})

	_, err := svc.ListUserPayslips(context.Background(), db, services.Actor{UserID: alice.ID, Role: models.RoleUser}, bob.ID)
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestPayslip_AddGetDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newPayslipService(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, testutil.UserOpts{NatID: "63-3000001A01"})
	hr := services.Actor{Role: models.RoleHR}
	admin := services.Actor{Role: models.RoleAdmin}

	payslip, err := svc.AddPayslip(ctx, db, hr, &dto.CreatePayslipRequest{NatID: "63-3000001A01", Period: "2024-07", BasicPay: "500"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, payslip.UserID)
	assert.Equal(t, owner.FullName(), payslip.UserName)

	got, err := svc.GetPayslip(ctx, db, payslip.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-07", got.Period)

	assertAppError(t, svc.DeletePayslip(ctx, db, hr, payslip.ID), apperrors.CodeForbidden)
	require.NoError(t, svc.DeletePayslip(ctx, db, admin, payslip.ID))

	_, err = svc.GetPayslip(ctx, db, payslip.ID)
	assertAppError(t, err, apperrors.CodeNotFound)
}

func TestPayslip_UpdateAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newPayslipService(t)
	ctx := context.Background()
	testutil.CreateUser(t, db, testutil.UserOpts{NatID: "63-3000002B02"})
	hr := services.Actor{Role: models.RoleHR}

	july, err := svc.AddPayslip(ctx, db, hr, &dto.CreatePayslipRequest{NatID: "63-3000002B02", Period: "2024-07", BasicPay: "500"})
	require.NoError(t, err)
	_, err = svc.AddPayslip(ctx, db, hr, &dto.CreatePayslipRequest{NatID: "63-3000002B02", Period: "2024-08", BasicPay: "520"})
	require.NoError(t, err)

	netpay := "1,250.555"
	updated, err := svc.UpdatePayslip(ctx, db, july.ID, &dto.UpdatePayslipRequest{Netpay: &netpay})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1250.56").Equal(updated.Netpay), updated.Netpay.String())
	assert.True(t, decimal.RequireFromString("500").Equal(updated.BasicPay))

	_, err = svc.UpdatePayslip(ctx, db, july.ID, &dto.UpdatePayslipRequest{})
	assertAppError(t, err, apperrors.CodeValidationFailed)
	_, err = svc.UpdatePayslip(ctx, db, 999, &dto.UpdatePayslipRequest{Netpay: &netpay})
	assertAppError(t, err, apperrors.CodeNotFound)

	page, err := svc.ListPayslips(ctx, db, "", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.True(t, page.HasMore)
	items := page.Data.([]models.Payslip)
	require.Len(t, items, 1)
	assert.Equal(t, "2024-08", items[0].Period)

	filtered, err := svc.ListPayslips(ctx, db, "2024-07", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, filtered.Total)
}
