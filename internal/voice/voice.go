// Package voice 提供各 TTS 引擎的静态音色目录。
package voice

import "strings"

// Descriptor 描述一个可选音色。
type Descriptor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Language  string `json:"language"`
	Gender    string `json:"gender"`
	Info      string `json:"info,omitempty"`
	Available bool   `json:"available"`
	// Speaker 是本地模型中的说话人编号，仅 kokoro 使用。
	Speaker int `json:"-"`
}

// 引擎名称，与配置中的 tts.engine 对应。
const (
	EngineKokoro  = "kokoro"
	EngineVolcano = "volcano"
	EngineEdge    = "edge"
	EngineTencent = "tencent"
	EnginePiper   = "piper"
	EngineSay     = "say"
	EngineMock    = "mock"
)

// VolcanoDefault 是火山引擎的免费通用女声。
const VolcanoDefault = "BV001_streaming"

var kokoroVoices = []Descriptor{
	{ID: "af", Name: "Default", Language: "en-us", Gender: "Female", Available: true, Speaker: 0},
	{ID: "af_bella", Name: "Bella", Language: "en-us", Gender: "Female", Available: true, Speaker: 1},
	{ID: "af_nicole", Name: "Nicole", Language: "en-us", Gender: "Female", Available: true, Speaker: 2},
	{ID: "af_sarah", Name: "Sarah", Language: "en-us", Gender: "Female", Available: true, Speaker: 3},
	{ID: "af_sky", Name: "Sky", Language: "en-us", Gender: "Female", Available: true, Speaker: 4},
	{ID: "am_adam", Name: "Adam", Language: "en-us", Gender: "Male", Available: true, Speaker: 5},
	{ID: "am_michael", Name: "Michael", Language: "en-us", Gender: "Male", Available: true, Speaker: 6},
	{ID: "bf_emma", Name: "Emma", Language: "en-gb", Gender: "Female", Available: true, Speaker: 7},
	{ID: "bf_isabella", Name: "Isabella", Language: "en-gb", Gender: "Female", Available: true, Speaker: 8},
	{ID: "bm_george", Name: "George", Language: "en-gb", Gender: "Male", Available: true, Speaker: 9},
	{ID: "bm_lewis", Name: "Lewis", Language: "en-gb", Gender: "Male", Available: true, Speaker: 10},
}

// 已开通的音色在前，未开通的音色 Available 为 false。
var volcanoVoices = []Descriptor{
	{ID: "BV001_streaming", Name: "通用女声", Language: "zh-CN", Gender: "女性", Info: "支持12种情感", Available: true},
	{ID: "BV002_streaming", Name: "通用男声", Language: "zh-CN", Gender: "男性", Available: true},
	{ID: "BV701_streaming", Name: "擎苍", Language: "zh-CN", Gender: "男性", Info: "支持10种情感", Available: true},
	{ID: "BV033_streaming", Name: "温柔小哥", Language: "zh-CN", Gender: "男性", Info: "教育场景", Available: true},
	{ID: "BV504_streaming", Name: "活力男声-Jackson", Language: "en-US", Gender: "男性", Info: "美式发音", Available: true},
	{ID: "BV119_streaming", Name: "通用赘婿", Language: "zh-CN", Gender: "男性", Info: "支持8种情感", Available: true},
	{ID: "BV051_streaming", Name: "奶气萌娃", Language: "zh-CN", Gender: "女性", Info: "特色音色", Available: true},
	{ID: "BV007_streaming", Name: "亲切女声", Language: "zh-CN", Gender: "女性", Info: "客服场景", Available: true},
	{ID: "BV115_streaming", Name: "古风少御", Language: "zh-CN", Gender: "男性", Info: "支持8种情感", Available: true},
	{ID: "BV034_streaming", Name: "知性姐姐-双语", Language: "zh-CN", Gender: "女性", Info: "教育场景", Available: true},
	{ID: "BV102_streaming", Name: "儒雅青年", Language: "zh-CN", Gender: "男性", Info: "有声阅读", Available: true},
	{ID: "BV005_streaming", Name: "活泼女声", Language: "zh-CN", Gender: "女性", Info: "视频配音", Available: true},
	{ID: "BV213_streaming", Name: "广西表哥", Language: "zh-CN", Gender: "男性", Info: "广西普通话", Available: true},
	{ID: "BV503_streaming", Name: "活力女声-Ariana", Language: "en-US", Gender: "女性", Info: "美式发音", Available: true},
	{ID: "BV522_streaming", Name: "气质女生", Language: "ja-JP", Gender: "女性", Info: "日语", Available: true},
	{ID: "BV700_streaming", Name: "灿灿", Language: "zh-CN", Gender: "女性", Info: "支持22种情感/风格", Available: true},
	{ID: "BV056_streaming", Name: "阳光男声", Language: "zh-CN", Gender: "男性", Info: "视频配音", Available: true},
	{ID: "BV524_streaming", Name: "日语男声", Language: "ja-JP", Gender: "男性", Info: "日语", Available: true},
	{ID: "BV113_streaming", Name: "甜宠少御", Language: "zh-CN", Gender: "男性", Info: "有声阅读", Available: true},
	{ID: "BV705_streaming", Name: "炀炀", Language: "zh-CN", Gender: "女性", Info: "支持多种情感", Available: true},
	{ID: "BV019_streaming", Name: "重庆小伙", Language: "zh-CN", Gender: "男性", Info: "重庆话", Available: true},
	{ID: "BV021_streaming", Name: "东北老铁", Language: "zh-CN", Gender: "男性", Info: "东北话", Available: true},

	{ID: "BV700_V2_streaming", Name: "灿灿 2.0", Language: "zh-CN", Gender: "女性", Info: "支持22种情感/风格"},
	{ID: "BV701_V2_streaming", Name: "擎苍 2.0", Language: "zh-CN", Gender: "男性", Info: "支持10种情感"},
	{ID: "BV001_V2_streaming", Name: "通用女声 2.0", Language: "zh-CN", Gender: "女性"},
	{ID: "BV406_V2_streaming", Name: "梓梓 2.0", Language: "zh-CN", Gender: "女性"},
	{ID: "BV406_streaming", Name: "梓梓", Language: "zh-CN", Gender: "女性", Info: "支持7种情感"},
	{ID: "BV407_V2_streaming", Name: "燃燃 2.0", Language: "zh-CN", Gender: "男性"},
	{ID: "BV407_streaming", Name: "燃燃", Language: "zh-CN", Gender: "男性"},
	{ID: "BV123_streaming", Name: "阳光青年", Language: "zh-CN", Gender: "男性", Info: "支持7种情感"},
	{ID: "BV120_streaming", Name: "反卷青年", Language: "zh-CN", Gender: "男性", Info: "支持7种情感"},
	{ID: "BV107_streaming", Name: "霸气青叔", Language: "zh-CN", Gender: "男性", Info: "支持8种情感"},
	{ID: "BV100_streaming", Name: "质朴青年", Language: "zh-CN", Gender: "男性", Info: "支持8种情感"},
	{ID: "BV104_streaming", Name: "温柔淑女", Language: "zh-CN", Gender: "女性", Info: "支持8种情感"},
	{ID: "BV004_streaming", Name: "开朗青年", Language: "zh-CN", Gender: "男性", Info: "支持8种情感"},
	{ID: "BV704_streaming", Name: "方言灿灿", Language: "多方言", Gender: "女性", Info: "支持东北话、粤语、上海话等"},
	{ID: "BV702_streaming", Name: "Stefan", Language: "多语言", Gender: "男性", Info: "支持中文、英语、日语等"},
	{ID: "BV421_streaming", Name: "天才少女", Language: "多语言", Gender: "女性", Info: "支持中文、英语、日语等多语言"},
}

var edgeVoices = []Descriptor{
	{ID: "en-US-AriaNeural", Name: "Aria", Language: "en-US", Gender: "Female", Available: true},
	{ID: "en-US-GuyNeural", Name: "Guy", Language: "en-US", Gender: "Male", Available: true},
	{ID: "en-US-JennyNeural", Name: "Jenny", Language: "en-US", Gender: "Female", Available: true},
	{ID: "en-GB-SoniaNeural", Name: "Sonia", Language: "en-GB", Gender: "Female", Available: true},
	{ID: "en-GB-RyanNeural", Name: "Ryan", Language: "en-GB", Gender: "Male", Available: true},
	{ID: "zh-CN-XiaoxiaoNeural", Name: "晓晓", Language: "zh-CN", Gender: "Female", Available: true},
	{ID: "zh-CN-YunxiNeural", Name: "云希", Language: "zh-CN", Gender: "Male", Available: true},
	{ID: "zh-CN-XiaoyiNeural", Name: "晓伊", Language: "zh-CN", Gender: "Female", Available: true},
}

// 腾讯云音色 ID 是数字 VoiceType。
var tencentVoices = []Descriptor{
	{ID: "101001", Name: "智瑜", Language: "zh-CN", Gender: "女性", Info: "情感女声", Available: true},
	{ID: "101002", Name: "智聆", Language: "zh-CN", Gender: "女性", Info: "通用女声", Available: true},
	{ID: "101004", Name: "智云", Language: "zh-CN", Gender: "男性", Info: "通用男声", Available: true},
	{ID: "101015", Name: "智萌", Language: "zh-CN", Gender: "男性", Info: "男童声", Available: true},
	{ID: "101016", Name: "智甜", Language: "zh-CN", Gender: "女性", Info: "女童声", Available: true},
	{ID: "101050", Name: "WeJack", Language: "en-US", Gender: "男性", Info: "英文男声", Available: true},
	{ID: "101051", Name: "WeRose", Language: "en-US", Gender: "女性", Info: "英文女声", Available: true},
}

var defaultVoices = []Descriptor{
	{ID: "default", Name: "Default", Language: "auto", Gender: "Unknown", Available: true},
}

// Catalog 返回引擎对应的音色列表副本。未知引擎返回只含 default 的列表。
func Catalog(engine string) []Descriptor {
	var src []Descriptor
	switch strings.ToLower(engine) {
	case EngineKokoro:
		src = kokoroVoices
	case EngineVolcano:
		src = volcanoVoices
	case EngineEdge:
		src = edgeVoices
	case EngineTencent:
		src = tencentVoices
	default:
		src = defaultVoices
	}
	out := make([]Descriptor, len(src))
	copy(out, src)
	return out
}

// Lookup 按 ID 查找音色。
func Lookup(engine, id string) (Descriptor, bool) {
	for _, d := range Catalog(engine) {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// NormalizeVolcano 补全 _streaming 后缀，并把未开通的音色替换为免费音色。
// 第二个返回值表示是否发生了替换。
func NormalizeVolcano(id string) (string, bool) {
	if id == "" {
		return VolcanoDefault, false
	}
	if !strings.Contains(id, "_streaming") {
		id += "_streaming"
	}
	if d, ok := Lookup(EngineVolcano, id); ok && !d.Available {
		return VolcanoDefault, true
	}
	return id, false
}
