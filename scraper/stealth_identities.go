package scraper

// Identity is a reusable, internally consistent browser fingerprint. The
// profile fields are immutable; usage counters and burn state live in the
// key-value store so concurrent engine instances share them.
type Identity struct {
	ID             string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Timezone       string
	Locale         string
	ColorScheme    string
	DeviceScale    float64
	WebGLVendor    string
	WebGLRenderer  string
}

// identityPool is the static fingerprint pool. Each entry is a coherent
// OS/browser/hardware combination; mixing fields between entries would make
// the fingerprint internally inconsistent and easy to flag.
var identityPool = []Identity{
	{
		ID:             "mac_chrome_1",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1440,
		ViewportHeight: 900,
		Timezone:       "America/New_York",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    2,
		WebGLVendor:    "Google Inc. (Apple)",
		WebGLRenderer:  "ANGLE (Apple, Apple M1, OpenGL 4.1)",
	},
	{
		ID:             "mac_chrome_2",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		ViewportWidth:  1680,
		ViewportHeight: 1050,
		Timezone:       "America/Chicago",
		Locale:         "en-US",
		ColorScheme:    "dark",
		DeviceScale:    2,
		WebGLVendor:    "Google Inc. (Apple)",
		WebGLRenderer:  "ANGLE (Apple, Apple M2, OpenGL 4.1)",
	},
	{
		ID:             "mac_chrome_3",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:  1512,
		ViewportHeight: 982,
		Timezone:       "America/Los_Angeles",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    2,
		WebGLVendor:    "Google Inc. (Apple)",
		WebGLRenderer:  "ANGLE (Apple, Apple M1 Pro, OpenGL 4.1)",
	},
	{
		ID:             "mac_safari_1",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		ViewportWidth:  1440,
		ViewportHeight: 900,
		Timezone:       "America/New_York",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    2,
		WebGLVendor:    "Apple Inc.",
		WebGLRenderer:  "Apple GPU",
	},
	{
		ID:             "mac_safari_2",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		ViewportWidth:  1728,
		ViewportHeight: 1117,
		Timezone:       "America/Denver",
		Locale:         "en-US",
		ColorScheme:    "dark",
		DeviceScale:    2,
		WebGLVendor:    "Apple Inc.",
		WebGLRenderer:  "Apple GPU",
	},
	{
		ID:             "windows_chrome_1",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timezone:       "America/New_York",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    1,
		WebGLVendor:    "Google Inc. (NVIDIA)",
		WebGLRenderer:  "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
	},
	{
		ID:             "windows_chrome_2",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		ViewportWidth:  2560,
		ViewportHeight: 1440,
		Timezone:       "America/Chicago",
		Locale:         "en-US",
		ColorScheme:    "dark",
		DeviceScale:    1,
		WebGLVendor:    "Google Inc. (AMD)",
		WebGLRenderer:  "ANGLE (AMD, AMD Radeon RX 6700 XT Direct3D11 vs_5_0 ps_5_0, D3D11)",
	},
	{
		ID:             "windows_chrome_3",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:  1366,
		ViewportHeight: 768,
		Timezone:       "America/Phoenix",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    1,
		WebGLVendor:    "Google Inc. (Intel)",
		WebGLRenderer:  "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)",
	},
	{
		ID:             "windows_edge_1",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timezone:       "America/Los_Angeles",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    1.25,
		WebGLVendor:    "Google Inc. (NVIDIA)",
		WebGLRenderer:  "ANGLE (NVIDIA, NVIDIA GeForce GTX 1660 Direct3D11 vs_5_0 ps_5_0, D3D11)",
	},
	{
		ID:             "windows_firefox_1",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timezone:       "America/New_York",
		Locale:         "en-US",
		ColorScheme:    "dark",
		DeviceScale:    1,
		WebGLVendor:    "Mozilla",
		WebGLRenderer:  "Mozilla",
	},
	{
		ID:             "linux_chrome_1",
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timezone:       "America/Chicago",
		Locale:         "en-US",
		ColorScheme:    "dark",
		DeviceScale:    1,
		WebGLVendor:    "Google Inc. (Mesa)",
		WebGLRenderer:  "ANGLE (Mesa, Mesa Intel(R) Xe Graphics (TGL GT2), OpenGL 4.6)",
	},
	{
		ID:             "linux_firefox_1",
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		ViewportWidth:  1600,
		ViewportHeight: 900,
		Timezone:       "America/Denver",
		Locale:         "en-US",
		ColorScheme:    "light",
		DeviceScale:    1,
		WebGLVendor:    "Mozilla",
		WebGLRenderer:  "Mozilla",
	},
}

// IdentityPool returns the static fingerprint pool
func IdentityPool() []Identity {
	return identityPool
}
