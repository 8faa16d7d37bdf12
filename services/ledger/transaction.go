package ledger

import "fmt"

type InputKind string

const (
	InputOwned  InputKind = "object"
	InputShared InputKind = "shared"
	InputPure   InputKind = "pure"
)

// Input is one transaction input. Pure values carry their Move type so the
// signer gateway can serialize them.
type Input struct {
	Kind                 InputKind  `json:"kind"`
	Object               *ObjectRef `json:"object,omitempty"`
	ObjectID             string     `json:"objectId,omitempty"`
	InitialSharedVersion Uint64     `json:"initialSharedVersion,omitempty"`
	Mutable              bool       `json:"mutable,omitempty"`
	PureType             string     `json:"type,omitempty"`
	Value                any        `json:"value,omitempty"`
}

type ArgKind string

const (
	ArgGas          ArgKind = "gas"
	ArgInput        ArgKind = "input"
	ArgResult       ArgKind = "result"
	ArgNestedResult ArgKind = "nestedResult"
)

// Argument refers to gas, an input, or the result of an earlier command.
type Argument struct {
	Kind        ArgKind `json:"kind"`
	Index       uint16  `json:"index,omitempty"`
	ResultIndex uint16  `json:"resultIndex,omitempty"`
}

func GasCoin() Argument { return Argument{Kind: ArgGas} }

func (a Argument) String() string {
	switch a.Kind {
	case ArgInput:
		return fmt.Sprintf("Input(%d)", a.Index)
	case ArgResult:
		return fmt.Sprintf("Result(%d)", a.Index)
	case ArgNestedResult:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Index, a.ResultIndex)
	default:
		return "GasCoin"
	}
}

type CommandKind string

const (
	CommandMoveCall        CommandKind = "moveCall"
	CommandSplitCoins      CommandKind = "splitCoins"
	CommandTransferObjects CommandKind = "transferObjects"
)

type Command struct {
	Kind CommandKind `json:"kind"`

	// moveCall
	Target        string     `json:"target,omitempty"`
	TypeArguments []string   `json:"typeArguments,omitempty"`
	Arguments     []Argument `json:"arguments,omitempty"`

	// splitCoins
	Coin    *Argument  `json:"coin,omitempty"`
	Amounts []Argument `json:"amounts,omitempty"`

	// transferObjects
	Objects []Argument `json:"objects,omitempty"`
	Address *Argument  `json:"address,omitempty"`
}

// Transaction is an unsigned programmable transaction. Key handling and byte
// encoding belong to the signer gateway.
type Transaction struct {
	Sender    string    `json:"sender"`
	GasBudget uint64    `json:"gasBudget"`
	Inputs    []Input   `json:"inputs"`
	Commands  []Command `json:"commands"`
}

func NewTransaction(sender string, gasBudget uint64) *Transaction {
	return &Transaction{Sender: sender, GasBudget: gasBudget}
}

// Owned adds an owned or immutable object input. Repeated ids share one input.
func (tx *Transaction) Owned(ref ObjectRef) Argument {
	if i, ok := tx.findObject(ref.ObjectID); ok {
		return Argument{Kind: ArgInput, Index: i}
	}
	tx.Inputs = append(tx.Inputs, Input{Kind: InputOwned, Object: &ref})
	return Argument{Kind: ArgInput, Index: uint16(len(tx.Inputs) - 1)}
}

// Shared adds a shared object input. Repeated ids share one input, mutable if
// any use is.
func (tx *Transaction) Shared(id string, initialSharedVersion uint64, mutable bool) Argument {
	if i, ok := tx.findObject(id); ok {
		if mutable {
			tx.Inputs[i].Mutable = true
		}
		return Argument{Kind: ArgInput, Index: i}
	}
	tx.Inputs = append(tx.Inputs, Input{
		Kind:                 InputShared,
		ObjectID:             id,
		InitialSharedVersion: Uint64(initialSharedVersion),
		Mutable:              mutable,
	})
	return Argument{Kind: ArgInput, Index: uint16(len(tx.Inputs) - 1)}
}

func (tx *Transaction) Pure(moveType string, value any) Argument {
	tx.Inputs = append(tx.Inputs, Input{Kind: InputPure, PureType: moveType, Value: value})
	return Argument{Kind: ArgInput, Index: uint16(len(tx.Inputs) - 1)}
}

func (tx *Transaction) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	tx.Commands = append(tx.Commands, Command{
		Kind:          CommandMoveCall,
		Target:        target,
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	return tx.lastResult()
}

func (tx *Transaction) SplitCoins(coin Argument, amounts ...Argument) Argument {
	tx.Commands = append(tx.Commands, Command{Kind: CommandSplitCoins, Coin: &coin, Amounts: amounts})
	return tx.lastResult()
}

func (tx *Transaction) TransferObjects(objects []Argument, address Argument) {
	tx.Commands = append(tx.Commands, Command{Kind: CommandTransferObjects, Objects: objects, Address: &address})
}

// NestedResult addresses element j of a multi-value command result.
func NestedResult(result Argument, j uint16) Argument {
	return Argument{Kind: ArgNestedResult, Index: result.Index, ResultIndex: j}
}

func (tx *Transaction) lastResult() Argument {
	return Argument{Kind: ArgResult, Index: uint16(len(tx.Commands) - 1)}
}

func (tx *Transaction) findObject(id string) (uint16, bool) {
	for i, in := range tx.Inputs {
		switch {
		case in.Kind == InputOwned && in.Object != nil && SameAddress(in.Object.ObjectID, id):
			return uint16(i), true
		case in.Kind == InputShared && SameAddress(in.ObjectID, id):
			return uint16(i), true
		}
	}
	return 0, false
}
