package command

// Capability groups required by the built-in processors.
const (
	GroupGridCharge            = "deye_sg01hp3_grid_charge"
	GroupActivePowerRegulation = "deye_active_power_regulation"
	GroupBatteryControl        = "deye_battery_control"
)

// GridChargeProcessor sets the grid charge current.
//
// Topic: {prefix}/{instance}/grid_charge/command
type GridChargeProcessor struct {
	base
}

// NewGridChargeProcessor creates a grid charge processor and binds it to
// the "grid_charge" register of the deye_sg01hp3_grid_charge group.
func NewGridChargeProcessor(opts Options) (*GridChargeProcessor, error) {
	p := &GridChargeProcessor{}
	err := p.init(parameter{
		id:          "grid_charge",
		description: "Grid charge over MQTT",
		topicSuffix: "grid_charge",
		group:       GroupGridCharge,
	}, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ActivePowerRegulationProcessor sets the active power limit.
//
// Topic: {prefix}/{instance}/settings/active_power_regulation/command
type ActivePowerRegulationProcessor struct {
	base
}

// NewActivePowerRegulationProcessor creates an active power regulation processor.
func NewActivePowerRegulationProcessor(opts Options) (*ActivePowerRegulationProcessor, error) {
	p := &ActivePowerRegulationProcessor{}
	err := p.init(parameter{
		id:          "active_power_regulation",
		description: "Active power regulation over MQTT",
		topicSuffix: "settings/active_power_regulation",
		group:       GroupActivePowerRegulation,
	}, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// BatteryChargeCurrentProcessor sets the battery maximum charge current.
//
// Topic: {prefix}/{instance}/settings/battery/max_charge_current/command
type BatteryChargeCurrentProcessor struct {
	base
}

// NewBatteryChargeCurrentProcessor creates a battery charge current processor.
func NewBatteryChargeCurrentProcessor(opts Options) (*BatteryChargeCurrentProcessor, error) {
	p := &BatteryChargeCurrentProcessor{}
	err := p.init(parameter{
		id:          "battery_max_charge_current",
		description: "Battery max charge current over MQTT",
		topicSuffix: "settings/battery/max_charge_current",
		group:       GroupBatteryControl,
	}, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}
