package phone

// Country is a calling-code entry. DialCode includes the leading '+'.
type Country struct {
	Name     string
	ISO      string
	DialCode string
}

// Countries lists the supported calling codes. Where several countries share
// a code (US and Canada on +1) the first entry wins.
var Countries = []Country{
	{"United States", "US", "+1"},
	{"Canada", "CA", "+1"},
	{"Bahamas", "BS", "+1242"},
	{"Barbados", "BB", "+1246"},
	{"Anguilla", "AI", "+1264"},
	{"Antigua and Barbuda", "AG", "+1268"},
	{"British Virgin Islands", "VG", "+1284"},
	{"U.S. Virgin Islands", "VI", "+1340"},
	{"Cayman Islands", "KY", "+1345"},
	{"Bermuda", "BM", "+1441"},
	{"Grenada", "GD", "+1473"},
	{"Turks and Caicos Islands", "TC", "+1649"},
	{"Montserrat", "MS", "+1664"},
	{"Northern Mariana Islands", "MP", "+1670"},
	{"Guam", "GU", "+1671"},
	{"American Samoa", "AS", "+1684"},
	{"Sint Maarten", "SX", "+1721"},
	{"Saint Lucia", "LC", "+1758"},
	{"Dominica", "DM", "+1767"},
	{"Saint Vincent and the Grenadines", "VC", "+1784"},
	{"Puerto Rico", "PR", "+1787"},
	{"Dominican Republic", "DO", "+1809"},
	{"Trinidad and Tobago", "TT", "+1868"},
	{"Saint Kitts and Nevis", "KN", "+1869"},
	{"Jamaica", "JM", "+1876"},
	{"Russia", "RU", "+7"},
	{"Kazakhstan", "KZ", "+77"},
	{"Egypt", "EG", "+20"},
	{"South Africa", "ZA", "+27"},
	{"Greece", "GR", "+30"},
	{"Netherlands", "NL", "+31"},
	{"Belgium", "BE", "+32"},
	{"France", "FR", "+33"},
	{"Spain", "ES", "+34"},
	{"Hungary", "HU", "+36"},
	{"Italy", "IT", "+39"},
	{"Romania", "RO", "+40"},
	{"Switzerland", "CH", "+41"},
	{"Austria", "AT", "+43"},
	{"United Kingdom", "GB", "+44"},
	{"Denmark", "DK", "+45"},
	{"Sweden", "SE", "+46"},
	{"Norway", "NO", "+47"},
	{"Poland", "PL", "+48"},
	{"Germany", "DE", "+49"},
	{"Peru", "PE", "+51"},
	{"Mexico", "MX", "+52"},
	{"Argentina", "AR", "+54"},
	{"Brazil", "BR", "+55"},
	{"Chile", "CL", "+56"},
	{"Colombia", "CO", "+57"},
	{"Malaysia", "MY", "+60"},
	{"Australia", "AU", "+61"},
	{"Indonesia", "ID", "+62"},
	{"Philippines", "PH", "+63"},
	{"New Zealand", "NZ", "+64"},
	{"Singapore", "SG", "+65"},
	{"Thailand", "TH", "+66"},
	{"Japan", "JP", "+81"},
	{"South Korea", "KR", "+82"},
	{"Vietnam", "VN", "+84"},
	{"China", "CN", "+86"},
	{"Turkey", "TR", "+90"},
	{"India", "IN", "+91"},
	{"Pakistan", "PK", "+92"},
	{"Morocco", "MA", "+212"},
	{"Nigeria", "NG", "+234"},
	{"Kenya", "KE", "+254"},
	{"Portugal", "PT", "+351"},
	{"Ireland", "IE", "+353"},
	{"Finland", "FI", "+358"},
	{"Ukraine", "UA", "+380"},
	{"Czech Republic", "CZ", "+420"},
	{"Hong Kong", "HK", "+852"},
	{"Taiwan", "TW", "+886"},
	{"United Arab Emirates", "AE", "+971"},
	{"Israel", "IL", "+972"},
	{"Saudi Arabia", "SA", "+966"},
}
