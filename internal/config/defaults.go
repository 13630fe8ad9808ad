package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: "pulse",
		AutoSwitch: AutoSwitchConfig{
			Input:  true,
			Output: true,
		},
		Priority: PriorityConfig{AutoMerge: true},
		Store:    StoreConfig{},
		Monitor: MonitorConfig{
			PollIntervalMS: 500,
			CallTimeoutMS:  2000,
			WatchStore:     true,
		},
		Notify: NotifyConfig{
			Enable:     true,
			Backend:    "desktop",
			AppName:    "audioanchor",
			TimeoutMS:  4000,
			ThrottleMS: 1000,
			Sound:      false,
		},
		Debug: DebugConfig{},
	}
}
