package visitor

import (
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// Classify returns the access of a child in role, given the access its
// parent was visited with.
//
// Arguments are always reads, also when the callee mutates the object.
func Classify(access model.AstType, role syntax.Role) model.AstType {
	switch role {
	case syntax.RoleLHS, syntax.RoleOperand:
		return model.AstWrite
	case syntax.RoleIndexExpr, syntax.RoleArgument, syntax.RoleInitializer,
		syntax.RoleReceiver, syntax.RoleRHS, syntax.RoleCondition:
		return model.AstRead
	}
	if access == "" {
		return model.AstRead
	}
	return access
}

// typeLocation picks the occurrence role of a type reference from where it
// appears.
func typeLocation(n, parent *syntax.Node) model.AstType {
	if parent == nil || (n.Role != syntax.RoleType && n.Role != syntax.RoleReturnType) {
		return model.AstTypeLocation
	}
	switch parent.Kind {
	case syntax.KindParam:
		return model.AstParameterTypeLocation
	case syntax.KindMethodDecl:
		return model.AstReturnTypeLocation
	case syntax.KindFieldDecl:
		return model.AstFieldTypeLocation
	case syntax.KindVarDecl:
		return model.AstLocalTypeLocation
	}
	return model.AstTypeLocation
}

// callType is VirtualCall unless the target cannot be overridden.
func callType(b *syntax.MethodBinding) model.AstType {
	if b.IsConstructor || b.Modifiers&(model.ModStatic|model.ModPrivate|model.ModFinal) != 0 {
		return model.AstUsage
	}
	return model.AstVirtualCall
}
