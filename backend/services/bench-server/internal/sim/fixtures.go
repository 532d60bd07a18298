package sim

import "cellbench/backend/services/bench-server/internal/models"

// packModels are the EEPROM blocks of the battery types the shop sees.
// Docked stations cycle through them by id.
var packModels = []models.BatteryConfig{
	{
		FormatVersion:             2,
		BatteryType:               models.BatteryNiCd,
		NominalCapacityMAH:        1700,
		CellCount:                 5,
		NominalVoltageMV:          6000,
		ChargeVoltageLimitMV:      8900,
		StandardChargeCurrentMA:   350,
		StandardChargeDurationMin: 300,
		TrickleChargeCurrentMA:    50,
		CapTestDischargeCurrentMA: 5000,
		CapTestEndVoltageMV:       5000,
		CapTestMaxDurationMin:     60,
		CapTestPassMinCapacityPct: 85,
		MaxChargeTempC:            45.0,
		MaxDischargeTempC:         55.0,
		EmergencyTempMaxC:         60.0,
		AbsoluteMinVoltageMV:      4500,
		PartNumber:                "3301-31",
		ModelDescription:          "DIEHL NiCd 6V 1.7Ah (Original)",
		ManufacturerCode:          "D1347",
	},
	{
		FormatVersion:             2,
		BatteryType:               models.BatteryNiCd,
		NominalCapacityMAH:        1700,
		CellCount:                 5,
		NominalVoltageMV:          6000,
		ChargeVoltageLimitMV:      9000,
		StandardChargeCurrentMA:   400,
		StandardChargeDurationMin: 270,
		TrickleChargeCurrentMA:    50,
		CapTestDischargeCurrentMA: 5000,
		CapTestEndVoltageMV:       5000,
		CapTestMaxDurationMin:     60,
		CapTestPassMinCapacityPct: 90,
		MaxChargeTempC:            45.0,
		MaxDischargeTempC:         55.0,
		EmergencyTempMaxC:         60.0,
		AbsoluteMinVoltageMV:      4500,
		PartNumber:                "3301-31",
		ModelDescription:          "DIEHL NiCd 6V 1.7Ah (Amdt A)",
		ManufacturerCode:          "D1347",
	},
	{
		FormatVersion:             2,
		BatteryType:               models.BatteryNiCd,
		NominalCapacityMAH:        4000,
		CellCount:                 5,
		NominalVoltageMV:          6000,
		ChargeVoltageLimitMV:      9000,
		StandardChargeCurrentMA:   800,
		StandardChargeDurationMin: 300,
		TrickleChargeCurrentMA:    100,
		CapTestDischargeCurrentMA: 4000,
		CapTestEndVoltageMV:       5000,
		CapTestMaxDurationMin:     70,
		CapTestPassMinCapacityPct: 85,
		MaxChargeTempC:            45.0,
		MaxDischargeTempC:         55.0,
		EmergencyTempMaxC:         60.0,
		AbsoluteMinVoltageMV:      4500,
		PartNumber:                "3214-31",
		ModelDescription:          "DIEHL NiCd 6V 4Ah (Amdt A)",
		ManufacturerCode:          "D1347",
	},
	{
		FormatVersion:             2,
		BatteryType:               models.BatteryNiCd,
		NominalCapacityMAH:        1700,
		CellCount:                 20,
		NominalVoltageMV:          24000,
		ChargeVoltageLimitMV:      30000,
		StandardChargeCurrentMA:   425,
		StandardChargeDurationMin: 240,
		TrickleChargeCurrentMA:    60,
		CapTestDischargeCurrentMA: 3400,
		CapTestEndVoltageMV:       20000,
		CapTestMaxDurationMin:     60,
		CapTestPassMinCapacityPct: 85,
		MaxChargeTempC:            45.0,
		MaxDischargeTempC:         55.0,
		EmergencyTempMaxC:         60.0,
		AbsoluteMinVoltageMV:      18000,
		PartNumber:                "301-3017",
		ModelDescription:          "Cobham NiCd 24V 1.7Ah",
		ManufacturerCode:          "CB301",
	},
}

// PackModel returns the EEPROM fixture a docked station presents.
func PackModel(stationID int) models.BatteryConfig {
	return packModels[(stationID-1)%len(packModels)]
}
