package common

// Info describes one RTMP session to hooks and logs.
type Info struct {
	ID         uint64  `json:"id"`
	RemoteAddr string  `json:"remote_addr"`
	App        string  `json:"app,omitempty"`
	Args       string  `json:"args,omitempty"`
	FlashVer   string  `json:"flash_ver,omitempty"`
	SwfURL     string  `json:"swf_url,omitempty"`
	TcURL      string  `json:"tc_url,omitempty"`
	PageURL    string  `json:"page_url,omitempty"`
	ACodecs    float64 `json:"acodecs,omitempty"`
	VCodecs    float64 `json:"vcodecs,omitempty"`
	State      string  `json:"state"`
	InBytes    uint64  `json:"in_bytes"`
	OutBytes   uint64  `json:"out_bytes"`
	Epoch      int64   `json:"epoch"`
}
