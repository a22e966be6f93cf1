package restclient

// Op identifies a webHDFS-style operation understood by RestClient.
type Op string

const (
	OpAppend              Op = "APPEND"
	OpCheckAccess         Op = "CHECKACCESS"
	OpConcat              Op = "CONCAT"
	OpMsConcat            Op = "MSCONCAT"
	OpCreate              Op = "CREATE"
	OpDelete              Op = "DELETE"
	OpGetContentSummary   Op = "GETCONTENTSUMMARY"
	OpGetFileStatus       Op = "GETFILESTATUS"
	OpListStatus          Op = "LISTSTATUS"
	OpMkdirs              Op = "MKDIRS"
	OpOpen                Op = "OPEN"
	OpRename              Op = "RENAME"
	OpSetOwner            Op = "SETOWNER"
	OpSetPermission       Op = "SETPERMISSION"
	OpSetExpiry           Op = "SETEXPIRY"
	OpSetAcl              Op = "SETACL"
	OpModifyAclEntries    Op = "MODIFYACLENTRIES"
	OpRemoveAclEntries    Op = "REMOVEACLENTRIES"
	OpRemoveAcl           Op = "REMOVEACL"
	OpMsGetAclStatus      Op = "MSGETACLSTATUS"
	OpRemoveDefaultAcl    Op = "REMOVEDEFAULTACL"
)

// httpMethod is the HTTP verb an operation is dispatched with.
type httpMethod string

const (
	methodGet    httpMethod = "GET"
	methodPut    httpMethod = "PUT"
	methodPost   httpMethod = "POST"
	methodDelete httpMethod = "DELETE"
)

// opSpec describes the wire shape of one operation: its HTTP method and the
// set of query parameters it requires versus merely allows.
type opSpec struct {
	method   httpMethod
	required map[string]struct{}
	allowed  map[string]struct{}
	hasBody  bool
}

func paramSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// operationTable is the fixed dispatch table. Params not listed under either
// required or allowed for an operation are rejected by validateParams.
var operationTable = map[Op]opSpec{
	OpAppend: {
		method:   methodPost,
		required: paramSet("append"),
		allowed:  paramSet("append", "offset", "syncflag", "leaseid", "filesessionid"),
		hasBody:  true,
	},
	OpCheckAccess: {
		method:   methodGet,
		required: paramSet("fsaction"),
		allowed:  paramSet("fsaction"),
	},
	OpConcat: {
		method:   methodPost,
		required: paramSet("sources"),
		allowed:  paramSet("sources"),
	},
	OpMsConcat: {
		method:   methodPost,
		required: map[string]struct{}{},
		allowed:  paramSet("deletesourcedirectory"),
		hasBody:  true,
	},
	OpCreate: {
		method:   methodPut,
		required: map[string]struct{}{},
		allowed:  paramSet("overwrite", "write", "syncflag", "leaseid", "filesessionid", "permission"),
		hasBody:  true,
	},
	OpDelete: {
		method:   methodDelete,
		required: map[string]struct{}{},
		allowed:  paramSet("recursive"),
	},
	OpGetContentSummary: {
		method:   methodGet,
		required: map[string]struct{}{},
		allowed:  map[string]struct{}{},
	},
	OpGetFileStatus: {
		method:   methodGet,
		required: map[string]struct{}{},
		allowed:  map[string]struct{}{},
	},
	OpListStatus: {
		method:   methodGet,
		required: map[string]struct{}{},
		allowed:  paramSet("listsize", "listafter"),
	},
	OpMkdirs: {
		method:   methodPut,
		required: map[string]struct{}{},
		allowed:  paramSet("permission"),
	},
	OpOpen: {
		method:   methodGet,
		required: map[string]struct{}{},
		allowed:  paramSet("offset", "length", "read", "filesessionid"),
	},
	OpRename: {
		method:   methodPut,
		required: paramSet("destination"),
		allowed:  paramSet("destination"),
	},
	OpSetOwner: {
		method:   methodPut,
		required: map[string]struct{}{},
		allowed:  paramSet("owner", "group"),
	},
	OpSetPermission: {
		method:   methodPut,
		required: paramSet("permission"),
		allowed:  paramSet("permission"),
	},
	OpSetExpiry: {
		method:   methodPut,
		required: paramSet("expiryoption"),
		allowed:  paramSet("expiryoption", "expiretime"),
	},
	OpSetAcl: {
		method:   methodPut,
		required: paramSet("aclspec"),
		allowed:  paramSet("aclspec"),
	},
	OpModifyAclEntries: {
		method:   methodPut,
		required: paramSet("aclspec"),
		allowed:  paramSet("aclspec"),
	},
	OpRemoveAclEntries: {
		method:   methodPut,
		required: paramSet("aclspec"),
		allowed:  paramSet("aclspec"),
	},
	OpRemoveAcl: {
		method:   methodPut,
		required: map[string]struct{}{},
		allowed:  map[string]struct{}{},
	},
	OpMsGetAclStatus: {
		method:   methodGet,
		required: map[string]struct{}{},
		allowed:  map[string]struct{}{},
	},
	OpRemoveDefaultAcl: {
		method:   methodPut,
		required: map[string]struct{}{},
		allowed:  map[string]struct{}{},
	},
}
