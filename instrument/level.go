package instrument

import "github.jpl.nasa.gov/bdube/plcsim/hal"

// LevelParams configures a Level (tank) instrument.
type LevelParams struct {
	TankHeightMM     float64 `mapstructure:"tank_height_mm"`
	Height100Percent float64 `mapstructure:"height_100_percent"`
	HeightHHAlarm    float64 `mapstructure:"height_hh_alarm"`
	TankVolumeM3     float64 `mapstructure:"tank_volume_m3"`
}

// crossSectionM2 is the derived tank cross-sectional area.
func (p LevelParams) crossSectionM2() float64 {
	heightM := p.TankHeightMM / 1000
	if heightM == 0 {
		return 0
	}
	return p.TankVolumeM3 / heightM
}

// Level simulates a tank whose fill level is driven by a linked flow
// meter's flow rate.
type Level struct {
	Base
	params LevelParams

	levelMM      float64
	levelPercent float64
	volumeM3     float64
	hhAlarm      bool
}

// NewLevel constructs a Level instrument with zeroed state.
func NewLevel(id string, params LevelParams) *Level {
	return &Level{Base: NewBase(id, "level"), params: params}
}

func (l *Level) ReadInputs(bus hal.Bus) error {
	// Level has no hardware inputs; its only input is the linked
	// flow meter, consulted during Update.
	return nil
}

func (l *Level) Update(dt float64, links LinkReader) error {
	l.Lock()
	defer l.Unlock()

	flowLPM := 0.0
	if targetID, ok := l.link("flowmeter"); ok {
		if v, ok := links.StateValue(targetID, "flow_lpm"); ok {
			flowLPM = v
		}
	}
	flowM3S := flowLPM / 60000.0

	newVolume := l.volumeM3 + flowM3S*dt
	if newVolume < 0 {
		newVolume = 0
	}
	if newVolume > l.params.TankVolumeM3 {
		newVolume = l.params.TankVolumeM3
	}
	l.volumeM3 = newVolume

	cs := l.params.crossSectionM2()
	if cs > 0 {
		l.levelMM = (l.volumeM3 / cs) * 1000
	} else {
		l.levelMM = 0
	}
	if l.params.Height100Percent > 0 {
		l.levelPercent = l.levelMM / l.params.Height100Percent * 100
	}
	l.levelPercent = clampPercent(l.levelPercent)
	l.hhAlarm = l.levelMM >= l.params.HeightHHAlarm
	return nil
}

func (l *Level) WriteOutputs(bus hal.Bus) error {
	l.Lock()
	pct := l.levelPercent
	alarm := l.hhAlarm
	l.Unlock()

	l.writeAnalogCurrent(bus, "level_output", 4+(pct/100)*16)
	l.writeDigital(bus, "hh_alarm_output", alarm)
	return nil
}

func (l *Level) Snapshot() map[string]interface{} {
	l.Lock()
	defer l.Unlock()
	return map[string]interface{}{
		"level_mm":      round2(l.levelMM),
		"level_percent": round2(l.levelPercent),
		"volume_m3":     round2(l.volumeM3),
		"hh_alarm":      l.hhAlarm,
		"config":        l.params,
	}
}

func (l *Level) StateValue(key string) (float64, bool) {
	l.Lock()
	defer l.Unlock()
	switch key {
	case "level_mm":
		return l.levelMM, true
	case "level_percent":
		return l.levelPercent, true
	case "volume_m3":
		return l.volumeM3, true
	}
	return 0, false
}

func (l *Level) SetParameter(name string, value interface{}) error {
	l.Lock()
	defer l.Unlock()
	f, ok := value.(float64)
	if !ok {
		return newTypeError(l.id, name, "float64", value)
	}
	switch name {
	case "tank_height_mm":
		l.params.TankHeightMM = f
	case "height_100_percent":
		l.params.Height100Percent = f
	case "height_hh_alarm":
		l.params.HeightHHAlarm = f
	case "tank_volume_m3":
		l.params.TankVolumeM3 = f
	default:
		return newUnknownParameterError(l.id, name)
	}
	return nil
}

// SetLevelPercent is a supplemented testing/initialization hook (not
// part of the hardware-facing surface) that back-solves volume from a
// commanded fill percent, clamped to the tank's physical capacity.
func (l *Level) SetLevelPercent(pct float64) {
	l.Lock()
	defer l.Unlock()
	pct = clampPercent(pct)
	levelMM := pct / 100 * l.params.Height100Percent
	cs := l.params.crossSectionM2()
	volume := (levelMM / 1000) * cs
	if volume < 0 {
		volume = 0
	}
	if volume > l.params.TankVolumeM3 {
		volume = l.params.TankVolumeM3
	}
	l.volumeM3 = volume
	l.levelMM = levelMM
	l.levelPercent = pct
	l.hhAlarm = levelMM >= l.params.HeightHHAlarm
}

func (l *Level) Reset() {
	l.Lock()
	defer l.Unlock()
	l.levelMM = 0
	l.levelPercent = 0
	l.volumeM3 = 0
	l.hhAlarm = false
}

var _ Instrument = (*Level)(nil)
