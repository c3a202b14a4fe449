package deepgram

import "github.com/koscakluka/ema-ordersim/core/scenario"

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-asteria-en"
	VoiceLuna    deepgramVoice = "aura-luna-en"
	VoiceStella  deepgramVoice = "aura-stella-en"
	VoiceAthena  deepgramVoice = "aura-athena-en"
	VoiceHera    deepgramVoice = "aura-hera-en"
	VoiceOrion   deepgramVoice = "aura-orion-en"
	VoiceArcas   deepgramVoice = "aura-arcas-en"
	VoicePerseus deepgramVoice = "aura-perseus-en"
	VoiceAngus   deepgramVoice = "aura-angus-en"
	VoiceOrpheus deepgramVoice = "aura-orpheus-en"
	VoiceHelios  deepgramVoice = "aura-helios-en"
	VoiceZeus    deepgramVoice = "aura-zeus-en"
)

const defaultVoice = VoiceAsteria

// Customers and sellers get distinct default voices so a dialogue is easy
// to follow by ear.
var defaultRoleVoices = map[scenario.Role]deepgramVoice{
	scenario.RoleCustomer: VoiceAsteria,
	scenario.RoleSeller:   VoiceHelios,
}

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceHera, VoiceOrion,
		VoiceArcas, VoicePerseus, VoiceAngus, VoiceOrpheus, VoiceHelios, VoiceZeus,
	}
}
