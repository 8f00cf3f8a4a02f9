package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/variant"
)

const sheetName = "Registrations"

var columns = []string{
	"Registration ID",
	"Name",
	"Email",
	"WhatsApp Number",
	"Gender",
	"State/UT",
	"District",
	"House Color",
	"Year of Passing",
	"Registration Types",
	"Adults",
	"Children",
	"Infants",
	"Total Attendees",
	"Contribution Amount",
	"Payment Status",
	"Transaction ID",
	"Verified",
	"Registration Date",
}

// RegistrationsWorkbook renders all registrations into a single-sheet xlsx
// workbook. The caller owns closing the returned file.
func RegistrationsWorkbook(cfg variant.Config, regs []registration.Registration) (*excelize.File, error) {
	f := excelize.NewFile()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, headerStyle)
	}

	for i, reg := range regs {
		row := rowValues(cfg, reg)
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func rowValues(cfg variant.Config, reg registration.Registration) []interface{} {
	verified := "No"
	if reg.Verified {
		verified = "Yes"
	}

	yearOfPassing := ""
	if reg.Extension.YearOfPassing != 0 {
		yearOfPassing = fmt.Sprintf("%d", reg.Extension.YearOfPassing)
	}

	return []interface{}{
		reg.Code(cfg.CodePrefix),
		reg.Name,
		reg.Email,
		reg.WhatsappNumber,
		reg.Gender,
		reg.Extension.StateUT,
		reg.Extension.District,
		reg.Extension.HouseColor,
		yearOfPassing,
		strings.Join(reg.Extension.RegistrationTypes, ", "),
		reg.Attendees.Adults,
		reg.Attendees.Children,
		reg.Attendees.Infants,
		reg.TotalAttendees(),
		reg.ContributionAmount,
		reg.PaymentStatus,
		reg.PaymentTransactionID,
		verified,
		registration.DisplayDate(reg.CreatedAt),
	}
}
