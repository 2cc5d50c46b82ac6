package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// IO
	IOLoadFileError Code = 100

	// Project / module graph
	ProjMissingModule    Code = 200
	ProjSelfImport       Code = 201
	ProjImportCycle      Code = 202
	ProjDuplicateModule  Code = 203
	ProjDependencyFailed Code = 204
	ProjBadModulePath    Code = 205

	// Синтаксис
	SynUnexpectedTopLevel Code = 300
	SynExpectModulePath   Code = 301
	SynExpectName         Code = 302
	SynExpectSymbol       Code = 303
	SynDuplicateDecl      Code = 304

	// Семантика
	SemaUnknownModule Code = 400
	SemaUnknownSymbol Code = 401
	SemaImportUnused  Code = 402
	SemaPrivateSymbol Code = 403

	// Кодогенерация и линковка
	GenEmitFailed Code = 500
	LinkFailed    Code = 501
)

func (c Code) String() string {
	return fmt.Sprintf("F%04d", uint16(c))
}
