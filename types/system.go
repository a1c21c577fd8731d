package types

// Well-known system identities.
const (
	SystemModuleName     = "LibraSystem"
	BlockPrologueName    = "block_prologue"
	BlockMetadataStruct  = "BlockMetadata"
	GasAccountModuleName = "GasAccount"
	GasAccountStruct     = "T"
)

// SystemModuleID is 0x0::LibraSystem.
var SystemModuleID = ModuleID{Address: SystemAddress, Name: SystemModuleName}

// BlockMetadataTag is the resource the prologue keeps under the system
// address.
var BlockMetadataTag = StructTag{Module: SystemModuleID, Name: BlockMetadataStruct}

// GasAccountModuleID is 0x0::GasAccount, the module holding gas balances.
var GasAccountModuleID = ModuleID{Address: SystemAddress, Name: GasAccountModuleName}

// GasAccountTag is the resource holding an account's gas balance. Fees are
// debited from the sender's and credited to each recipient's.
var GasAccountTag = StructTag{Module: GasAccountModuleID, Name: GasAccountStruct}
