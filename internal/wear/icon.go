package wear

// Icon names the artwork drawn for a weather condition.
type Icon string

const (
	IconStorm       Icon = "storm"
	IconLightRain   Icon = "light_rain"
	IconRain        Icon = "rain"
	IconSnow        Icon = "snow"
	IconFog         Icon = "fog"
	IconClear       Icon = "clear"
	IconLightClouds Icon = "light_clouds"
	IconCloudy      Icon = "cloudy"
)

type iconRule struct {
	lo, hi int
	icon   Icon
}

// Rules overlap (761 is both fog and storm); the first match wins.
var iconRules = []iconRule{
	{200, 232, IconStorm},
	{300, 321, IconLightRain},
	{500, 504, IconRain},
	{511, 511, IconSnow},
	{520, 531, IconRain},
	{600, 622, IconSnow},
	{701, 761, IconFog},
	{761, 761, IconStorm},
	{771, 771, IconStorm},
	{781, 781, IconStorm},
	{800, 800, IconClear},
	{801, 801, IconLightClouds},
	{802, 804, IconCloudy},
	{900, 906, IconStorm},
	{958, 962, IconStorm},
	{951, 957, IconClear},
}

// IconForCondition maps a provider condition code to an icon. Unknown codes
// get the storm icon.
func IconForCondition(code int) Icon {
	for _, r := range iconRules {
		if code >= r.lo && code <= r.hi {
			return r.icon
		}
	}
	return IconStorm
}
