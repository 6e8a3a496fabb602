package types

type Token string

type Tier string

type Side string

type PositionStatus string

type TxType string

type TransferKind string

const (
	TokenNuma Token = "numa"
	TokenWld  Token = "wld"
)

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierVip  Tier = "vip"
)

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

const (
	TxTypeGrant           TxType = "grant"
	TxTypeOpenPosition    TxType = "open_position"
	TxTypeClosePosition   TxType = "close_position"
	TxTypeLiquidation     TxType = "liquidation"
	TxTypeReward          TxType = "reward"
	TxTypeMembership      TxType = "membership"
	TxTypePioneerStake    TxType = "pioneer_stake"
	TxTypePioneerWithdraw TxType = "pioneer_withdraw"
	TxTypeReferral        TxType = "referral"
)

const (
	TransferKindDebit  TransferKind = "debit"
	TransferKindCredit TransferKind = "credit"
)
